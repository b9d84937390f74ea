package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SheepGroupRepo encapsulates queries on the sheep_group table.
type SheepGroupRepo struct {
	db *sql.DB
}

func NewSheepGroupRepo(db *sql.DB) *SheepGroupRepo { return &SheepGroupRepo{db: db} }

func scanGroup(row interface{ Scan(...any) error }) (*model.SheepGroup, error) {
	var (
		g    model.SheepGroup
		desc sql.NullString
	)
	if err := row.Scan(&g.ID, &g.FarmID, &g.Name, &desc); err != nil {
		return nil, err
	}
	if desc.Valid {
		g.Description = &desc.String
	}
	return &g, nil
}

func (r *SheepGroupRepo) Create(ctx context.Context, g *model.SheepGroup) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO sheep_group (farm_id, name, description) VALUES (?, ?, ?)", g.FarmID, g.Name, g.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

func (r *SheepGroupRepo) GetByID(ctx context.Context, id uint64) (*model.SheepGroup, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx,
		"SELECT id, farm_id, name, description FROM sheep_group WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, ErrGroupNotFound)
	}
	return g, nil
}

// ListByFarm returns the groups of farmID ordered by name.
func (r *SheepGroupRepo) ListByFarm(ctx context.Context, farmID uint64) ([]*model.SheepGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, farm_id, name, description FROM sheep_group WHERE farm_id = ? ORDER BY name, id", farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.SheepGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SheepGroupRepo) Update(ctx context.Context, g *model.SheepGroup) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sheep_group SET name = ?, description = ? WHERE id = ?", g.Name, g.Description, g.ID)
	return err
}

// Delete removes a group; its sheep are kept and become ungrouped.
func (r *SheepGroupRepo) Delete(ctx context.Context, id uint64) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE sheep SET group_id = NULL WHERE group_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sheep_group WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrGroupNotFound
		}
		return nil
	})
}
