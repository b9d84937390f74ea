package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SensorRepo encapsulates queries on the sensor table.
type SensorRepo struct {
	db *sql.DB
}

func NewSensorRepo(db *sql.DB) *SensorRepo { return &SensorRepo{db: db} }

const sensorColumns = "id, farm_id, name, min_value, max_value, current_value, unit, timestamp"

func scanSensor(row interface{ Scan(...any) error }) (*model.Sensor, error) {
	var (
		s      model.Sensor
		lo, hi sql.NullFloat64
		unit   sql.NullString
	)
	if err := row.Scan(&s.ID, &s.FarmID, &s.Name, &lo, &hi, &s.CurrentValue, &unit, &s.Timestamp); err != nil {
		return nil, err
	}
	if lo.Valid {
		s.MinValue = &lo.Float64
	}
	if hi.Valid {
		s.MaxValue = &hi.Float64
	}
	if unit.Valid {
		s.Unit = &unit.String
	}
	return &s, nil
}

func (r *SensorRepo) Create(ctx context.Context, s *model.Sensor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor (farm_id, name, min_value, max_value, current_value, unit, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.FarmID, s.Name, s.MinValue, s.MaxValue, s.CurrentValue, s.Unit, s.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *SensorRepo) GetByID(ctx context.Context, id uint64) (*model.Sensor, error) {
	s, err := scanSensor(r.db.QueryRowContext(ctx, "SELECT "+sensorColumns+" FROM sensor WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, ErrSensorNotFound)
	}
	return s, nil
}

// ListByFarm returns the sensors of farmID ordered by id.
func (r *SensorRepo) ListByFarm(ctx context.Context, farmID uint64) ([]*model.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sensorColumns+" FROM sensor WHERE farm_id = ? ORDER BY id", farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Sensor{}
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SensorRepo) Update(ctx context.Context, s *model.Sensor) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sensor SET name = ?, min_value = ?, max_value = ?, current_value = ?, unit = ?, timestamp = ?
		 WHERE id = ?`,
		s.Name, s.MinValue, s.MaxValue, s.CurrentValue, s.Unit, s.Timestamp, s.ID)
	return err
}

func (r *SensorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sensor WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSensorNotFound
	}
	return nil
}
