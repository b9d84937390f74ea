package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; later tables reference earlier ones.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS farm (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		location VARCHAR(255) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS farmer (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		farm_id BIGINT UNSIGNED NOT NULL UNIQUE,
		FOREIGN KEY (farm_id) REFERENCES farm(id)
	)`,
	`CREATE TABLE IF NOT EXISTS veterinarian (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		farm_id BIGINT UNSIGNED NOT NULL,
		farmer_id BIGINT UNSIGNED NOT NULL,
		FOREIGN KEY (farm_id) REFERENCES farm(id),
		FOREIGN KEY (farmer_id) REFERENCES farmer(id)
	)`,
	`CREATE TABLE IF NOT EXISTS sheep_group (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		farm_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NULL,
		FOREIGN KEY (farm_id) REFERENCES farm(id)
	)`,
	`CREATE TABLE IF NOT EXISTS sheep (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		farm_id BIGINT UNSIGNED NOT NULL,
		birth_date DATE NULL,
		gender VARCHAR(16) NOT NULL,
		feeding_hay DOUBLE NOT NULL DEFAULT 0,
		feeding_feed DOUBLE NOT NULL DEFAULT 0,
		group_id BIGINT UNSIGNED NULL,
		FOREIGN KEY (farm_id) REFERENCES farm(id),
		FOREIGN KEY (group_id) REFERENCES sheep_group(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sheep_parentage (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		parent_id BIGINT UNSIGNED NOT NULL,
		offspring_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_parent_offspring (parent_id, offspring_id),
		FOREIGN KEY (parent_id) REFERENCES sheep(id) ON DELETE CASCADE,
		FOREIGN KEY (offspring_id) REFERENCES sheep(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS milk_production_individual (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		sheep_id BIGINT UNSIGNED NOT NULL,
		date DATE NOT NULL,
		volume DOUBLE NOT NULL,
		UNIQUE KEY uq_sheep_date (sheep_id, date),
		FOREIGN KEY (sheep_id) REFERENCES sheep(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS farm_inventory (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		farm_id BIGINT UNSIGNED NOT NULL,
		item_name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		unit VARCHAR(32) NOT NULL,
		consumption_rate DOUBLE NOT NULL DEFAULT 0,
		category VARCHAR(64) NOT NULL,
		last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (farm_id) REFERENCES farm(id)
	)`,
	`CREATE TABLE IF NOT EXISTS sensor (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		farm_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		min_value DOUBLE NULL,
		max_value DOUBLE NULL,
		current_value DOUBLE NOT NULL,
		unit VARCHAR(32) NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (farm_id) REFERENCES farm(id)
	)`,
	`CREATE TABLE IF NOT EXISTS appointment (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		farm_id BIGINT UNSIGNED NOT NULL,
		vet_id BIGINT UNSIGNED NOT NULL,
		date DATETIME NOT NULL,
		reason TEXT NULL,
		comments TEXT NULL,
		FOREIGN KEY (farm_id) REFERENCES farm(id),
		FOREIGN KEY (vet_id) REFERENCES veterinarian(id)
	)`,
	`CREATE TABLE IF NOT EXISTS appointment_sheep (
		appointment_id BIGINT UNSIGNED NOT NULL,
		sheep_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (appointment_id, sheep_id),
		FOREIGN KEY (appointment_id) REFERENCES appointment(id) ON DELETE CASCADE,
		FOREIGN KEY (sheep_id) REFERENCES sheep(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS medication (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		appointment_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		dosage VARCHAR(255) NULL,
		indication TEXT NULL,
		FOREIGN KEY (appointment_id) REFERENCES appointment(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS revoked_token (
		token_hash CHAR(64) PRIMARY KEY,
		expires_at DATETIME NOT NULL,
		INDEX idx_revoked_token_expires (expires_at)
	)`,
	// one row per login email, shared by farmer and veterinarian
	`CREATE TABLE IF NOT EXISTS account_email (
		email VARCHAR(255) PRIMARY KEY
	)`,
	`INSERT IGNORE INTO account_email (email)
		SELECT email FROM farmer UNION SELECT email FROM veterinarian`,
}

// Migrate creates any missing table.  Existing tables are left as they are.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
