package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// FarmerRepo encapsulates queries on the farm and farmer tables.  A farmer
// is always created together with the farm they run.
type FarmerRepo struct {
	db *sql.DB
}

func NewFarmerRepo(db *sql.DB) *FarmerRepo { return &FarmerRepo{db: db} }

// CreateWithFarm inserts farm and then f inside one transaction and fills
// both generated ids.  f.PasswordHash must already be hashed.  The email
// is claimed in account_email first; ErrEmailExists is returned when a
// farmer or veterinarian already holds it.
func (r *FarmerRepo) CreateWithFarm(ctx context.Context, farm *model.Farm, f *model.Farmer) error {
	f.Email = normalizeEmail(f.Email)
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := claimEmail(ctx, tx, f.Email); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "INSERT INTO farm (name, location) VALUES (?, ?)", farm.Name, farm.Location)
		if err != nil {
			return err
		}
		farmID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		farm.ID = uint64(farmID)
		f.FarmID = farm.ID

		res, err = tx.ExecContext(ctx,
			"INSERT INTO farmer (name, email, password_hash, farm_id) VALUES (?, ?, ?, ?)",
			f.Name, f.Email, f.PasswordHash, f.FarmID)
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
		f.ID = uint64(id)
		return nil
	})
}

// GetByID fetches a farmer by id.
func (r *FarmerRepo) GetByID(ctx context.Context, id uint64) (*model.Farmer, error) {
	const q = "SELECT id, name, email, password_hash, farm_id FROM farmer WHERE id = ?"
	var f model.Farmer
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.Name, &f.Email, &f.PasswordHash, &f.FarmID); err != nil {
		return nil, notFound(err, ErrFarmerNotFound)
	}
	return &f, nil
}

// GetByFarm returns the farmer running farmID.
func (r *FarmerRepo) GetByFarm(ctx context.Context, farmID uint64) (*model.Farmer, error) {
	const q = "SELECT id, name, email, password_hash, farm_id FROM farmer WHERE farm_id = ?"
	var f model.Farmer
	if err := r.db.QueryRowContext(ctx, q, farmID).Scan(&f.ID, &f.Name, &f.Email, &f.PasswordHash, &f.FarmID); err != nil {
		return nil, notFound(err, ErrFarmerNotFound)
	}
	return &f, nil
}

// GetFarm fetches a farm by id.
func (r *FarmerRepo) GetFarm(ctx context.Context, id uint64) (*model.Farm, error) {
	const q = "SELECT id, name, location FROM farm WHERE id = ?"
	var (
		farm model.Farm
		loc  sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&farm.ID, &farm.Name, &loc); err != nil {
		return nil, notFound(err, ErrFarmNotFound)
	}
	if loc.Valid {
		farm.Location = &loc.String
	}
	return &farm, nil
}
