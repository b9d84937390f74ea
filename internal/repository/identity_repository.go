package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// IdentityRepo resolves login subjects against the farmer and veterinarian
// tables.  It is the identity store consulted on every authenticated
// request.
type IdentityRepo struct {
	db *sql.DB
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// FindByEmailAndKind loads the account with the given email from the table
// selected by role.  It returns ErrNotFound (wrapped) when the row does not
// exist or the role is not one the system knows.
func (r *IdentityRepo) FindByEmailAndKind(ctx context.Context, email string, role model.Role) (*model.Account, error) {
	email = normalizeEmail(email)
	var (
		q        string
		sentinel error
	)
	switch role {
	case model.RoleFarmer:
		q = "SELECT id, name, email, password_hash, farm_id FROM farmer WHERE email = ? LIMIT 1"
		sentinel = ErrFarmerNotFound
	case model.RoleVeterinarian:
		q = "SELECT id, name, email, password_hash, farm_id FROM veterinarian WHERE email = ? LIMIT 1"
		sentinel = ErrVeterinarianNotFound
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrNotFound, role)
	}

	var (
		a      model.Account
		farmID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&a.Principal.ID, &a.Principal.Name, &a.Principal.Email, &a.PasswordHash, &farmID)
	if err != nil {
		return nil, notFound(err, sentinel)
	}
	a.Principal.Role = role
	if farmID.Valid {
		id := uint64(farmID.Int64)
		a.Principal.FarmID = &id
	}
	return &a, nil
}

// EmailTaken reports whether email is used by any farmer or veterinarian.
func (r *IdentityRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM account_email WHERE email = ?)", normalizeEmail(email)).Scan(&taken)
	return taken, err
}

// claimEmail reserves email in account_email inside tx.  The primary key
// makes two concurrent claims of the same email, from either table,
// resolve to one winner; the loser gets ErrEmailExists.
func claimEmail(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO account_email (email) VALUES (?)", email)
	if err != nil && isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}

func releaseEmail(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM account_email WHERE email = ?", email)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
