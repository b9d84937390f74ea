package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// AppointmentRepo stores appointments, the sheep they cover
// (appointment_sheep) and the medications prescribed during them.
type AppointmentRepo struct {
	db *sql.DB
}

func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{db: db} }

// Create inserts a and its sheep links in one transaction.
func (r *AppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO appointment (farm_id, vet_id, date, reason, comments) VALUES (?, ?, ?, ?, ?)",
			a.FarmID, a.VetID, a.Date, a.Reason, a.Comments)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.ID = uint64(id)
		for _, sid := range a.SheepIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO appointment_sheep (appointment_id, sheep_id) VALUES (?, ?)", a.ID, sid); err != nil {
				return err
			}
		}
		if a.Medications == nil {
			a.Medications = []model.Medication{}
		}
		return nil
	})
}

// GetByID fetches an appointment with its sheep ids and medications.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (*model.Appointment, error) {
	var (
		a                model.Appointment
		reason, comments sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, farm_id, vet_id, date, reason, comments FROM appointment WHERE id = ?", id).
		Scan(&a.ID, &a.FarmID, &a.VetID, &a.Date, &reason, &comments)
	if err != nil {
		return nil, notFound(err, ErrAppointmentNotFound)
	}
	if reason.Valid {
		a.Reason = &reason.String
	}
	if comments.Valid {
		a.Comments = &comments.String
	}
	if a.SheepIDs, err = r.sheepIDs(ctx, a.ID); err != nil {
		return nil, err
	}
	if a.Medications, err = r.medications(ctx, a.ID); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByFarm returns the appointments of farmID, most recent first.
func (r *AppointmentRepo) ListByFarm(ctx context.Context, farmID uint64) ([]*model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM appointment WHERE farm_id = ? ORDER BY date DESC, id DESC", farmID)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.Appointment, 0, len(ids))
	for _, id := range ids {
		a, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Update writes reason and comments.  When meds is not nil the existing
// medications are replaced by *meds.
func (r *AppointmentRepo) Update(ctx context.Context, id uint64, reason, comments *string, meds *[]model.Medication) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE appointment SET reason = ?, comments = ? WHERE id = ?", reason, comments, id); err != nil {
			return err
		}
		if meds == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM medication WHERE appointment_id = ?", id); err != nil {
			return err
		}
		for _, m := range *meds {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO medication (appointment_id, name, dosage, indication) VALUES (?, ?, ?, ?)",
				id, m.Name, m.Dosage, m.Indication); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AppointmentRepo) sheepIDs(ctx context.Context, appointmentID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT sheep_id FROM appointment_sheep WHERE appointment_id = ? ORDER BY sheep_id", appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *AppointmentRepo) medications(ctx context.Context, appointmentID uint64) ([]model.Medication, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, appointment_id, name, dosage, indication FROM medication WHERE appointment_id = ? ORDER BY id",
		appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Medication{}
	for rows.Next() {
		var (
			m                  model.Medication
			dosage, indication sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.AppointmentID, &m.Name, &dosage, &indication); err != nil {
			return nil, err
		}
		if dosage.Valid {
			m.Dosage = &dosage.String
		}
		if indication.Valid {
			m.Indication = &indication.String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
