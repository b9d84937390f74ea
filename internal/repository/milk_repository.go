package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// MilkRepo aggregates milk_production_individual per farm and per group.
type MilkRepo struct {
	db *sql.DB
}

func NewMilkRepo(db *sql.DB) *MilkRepo { return &MilkRepo{db: db} }

// TotalForDay sums the volume recorded on day by sheep of farmID.
func (r *MilkRepo) TotalForDay(ctx context.Context, farmID uint64, day model.Date) (float64, error) {
	const q = `SELECT COALESCE(SUM(m.volume), 0)
	           FROM milk_production_individual m JOIN sheep s ON s.id = m.sheep_id
	           WHERE s.farm_id = ? AND m.date = ?`
	var total float64
	err := r.db.QueryRowContext(ctx, q, farmID, day).Scan(&total)
	return total, err
}

// TotalsByGroup sums volumes per group of farmID between from and to,
// both inclusive.  Groups without records are reported with zero.
func (r *MilkRepo) TotalsByGroup(ctx context.Context, farmID uint64, from, to model.Date) ([]model.GroupMilkTotal, error) {
	const q = `SELECT g.id, g.name, COALESCE(SUM(m.volume), 0)
	           FROM sheep_group g
	           LEFT JOIN sheep s ON s.group_id = g.id
	           LEFT JOIN milk_production_individual m ON m.sheep_id = s.id AND m.date BETWEEN ? AND ?
	           WHERE g.farm_id = ?
	           GROUP BY g.id, g.name
	           ORDER BY g.id`
	rows, err := r.db.QueryContext(ctx, q, from, to, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.GroupMilkTotal{}
	for rows.Next() {
		var t model.GroupMilkTotal
		if err := rows.Scan(&t.GroupID, &t.GroupName, &t.TotalVolume); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
