package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// VeterinarianRepo encapsulates queries on the veterinarian table.
type VeterinarianRepo struct {
	db *sql.DB
}

func NewVeterinarianRepo(db *sql.DB) *VeterinarianRepo { return &VeterinarianRepo{db: db} }

const vetColumns = "id, name, email, password_hash, farm_id, farmer_id"

func scanVet(row interface{ Scan(...any) error }) (*model.Veterinarian, error) {
	var v model.Veterinarian
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.PasswordHash, &v.FarmID, &v.FarmerID); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts v and fills its id.  ErrEmailExists is returned when the
// email is already used by any farmer or veterinarian.
func (r *VeterinarianRepo) Create(ctx context.Context, v *model.Veterinarian) error {
	v.Email = normalizeEmail(v.Email)
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := claimEmail(ctx, tx, v.Email); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO veterinarian (name, email, password_hash, farm_id, farmer_id) VALUES (?, ?, ?, ?, ?)",
			v.Name, v.Email, v.PasswordHash, v.FarmID, v.FarmerID)
		if err != nil {
			if isDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		v.ID = uint64(id)
		return nil
	})
}

// GetByID fetches a veterinarian by id.
func (r *VeterinarianRepo) GetByID(ctx context.Context, id uint64) (*model.Veterinarian, error) {
	v, err := scanVet(r.db.QueryRowContext(ctx, "SELECT "+vetColumns+" FROM veterinarian WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, ErrVeterinarianNotFound)
	}
	return v, nil
}

// FirstByFarm returns the farm's veterinarian with the lowest id.  It is
// the default vet for new appointments.
func (r *VeterinarianRepo) FirstByFarm(ctx context.Context, farmID uint64) (*model.Veterinarian, error) {
	v, err := scanVet(r.db.QueryRowContext(ctx,
		"SELECT "+vetColumns+" FROM veterinarian WHERE farm_id = ? ORDER BY id LIMIT 1", farmID))
	if err != nil {
		return nil, notFound(err, ErrVeterinarianNotFound)
	}
	return v, nil
}

// Update writes name, email and password hash of v.  The email must stay
// unique across farmers and veterinarians.
func (r *VeterinarianRepo) Update(ctx context.Context, v *model.Veterinarian) error {
	v.Email = normalizeEmail(v.Email)
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, "SELECT email FROM veterinarian WHERE id = ? FOR UPDATE", v.ID).Scan(&current); err != nil {
			return notFound(err, ErrVeterinarianNotFound)
		}
		if current != v.Email {
			if err := claimEmail(ctx, tx, v.Email); err != nil {
				return err
			}
			if err := releaseEmail(ctx, tx, current); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE veterinarian SET name = ?, email = ?, password_hash = ? WHERE id = ?",
			v.Name, v.Email, v.PasswordHash, v.ID)
		if err != nil && isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	})
}
