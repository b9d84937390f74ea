package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// InventoryRepo encapsulates queries on the farm_inventory table.
type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const inventoryColumns = "id, farm_id, item_name, quantity, unit, consumption_rate, category, last_updated"

func scanInventory(row interface{ Scan(...any) error }) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := row.Scan(&it.ID, &it.FarmID, &it.ItemName, &it.Quantity, &it.Unit,
		&it.ConsumptionRate, &it.Category, &it.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserts it and fills its id.
func (r *InventoryRepo) Create(ctx context.Context, it *model.InventoryItem) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO farm_inventory (farm_id, item_name, quantity, unit, consumption_rate, category, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.FarmID, it.ItemName, it.Quantity, it.Unit, it.ConsumptionRate, it.Category, it.LastUpdated)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id uint64) (*model.InventoryItem, error) {
	it, err := scanInventory(r.db.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM farm_inventory WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, ErrInventoryNotFound)
	}
	return it, nil
}

// ListByFarm returns the items of farmID ordered by item name.
func (r *InventoryRepo) ListByFarm(ctx context.Context, farmID uint64) ([]*model.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+inventoryColumns+" FROM farm_inventory WHERE farm_id = ? ORDER BY item_name, id", farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.InventoryItem{}
	for rows.Next() {
		it, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) Update(ctx context.Context, it *model.InventoryItem) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE farm_inventory SET item_name = ?, quantity = ?, unit = ?, consumption_rate = ?, category = ?, last_updated = ?
		 WHERE id = ?`,
		it.ItemName, it.Quantity, it.Unit, it.ConsumptionRate, it.Category, it.LastUpdated, it.ID)
	return err
}

func (r *InventoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM farm_inventory WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInventoryNotFound
	}
	return nil
}
