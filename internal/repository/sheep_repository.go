package repository

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SheepRepo provides CRUD for sheep plus their parentage and individual
// milk records.  Parentage is stored as (parent_id, offspring_id) pairs;
// whether a parent is the father or the mother follows from its gender.
type SheepRepo struct {
	db *sql.DB
}

func NewSheepRepo(db *sql.DB) *SheepRepo { return &SheepRepo{db: db} }

const sheepColumns = "s.id, s.farm_id, s.birth_date, s.gender, s.feeding_hay, s.feeding_feed, s.group_id"

func scanSheep(row interface{ Scan(...any) error }, extra ...any) (*model.Sheep, error) {
	var (
		s     model.Sheep
		birth sql.Null[model.Date]
		group sql.NullInt64
	)
	dest := append([]any{&s.ID, &s.FarmID, &birth, &s.Gender, &s.FeedingHay, &s.FeedingFeed, &group}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if birth.Valid {
		d := birth.V
		s.BirthDate = &d
	}
	if group.Valid {
		g := uint64(group.Int64)
		s.GroupID = &g
	}
	return &s, nil
}

// Create inserts s and its parentage links inside one transaction.
func (r *SheepRepo) Create(ctx context.Context, s *model.Sheep) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sheep (farm_id, birth_date, gender, feeding_hay, feeding_feed, group_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.FarmID, s.BirthDate, s.Gender, s.FeedingHay, s.FeedingFeed, s.GroupID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = uint64(id)
		return insertParents(ctx, tx, s.ID, s.FatherID, s.MotherID)
	})
}

func insertParents(ctx context.Context, tx *sql.Tx, offspringID uint64, parents ...*uint64) error {
	for _, p := range parents {
		if p == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sheep_parentage (parent_id, offspring_id) VALUES (?, ?)", *p, offspringID); err != nil {
			if isDuplicate(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// GetByID fetches a sheep with its father, mother and the milk volume
// recorded for today, if any.
func (r *SheepRepo) GetByID(ctx context.Context, id uint64) (*model.Sheep, error) {
	q := `SELECT ` + sheepColumns + `,
	        (SELECT p.id FROM sheep_parentage sp JOIN sheep p ON p.id = sp.parent_id
	          WHERE sp.offspring_id = s.id AND p.gender = ? LIMIT 1),
	        (SELECT p.id FROM sheep_parentage sp JOIN sheep p ON p.id = sp.parent_id
	          WHERE sp.offspring_id = s.id AND p.gender = ? LIMIT 1),
	        (SELECT m.volume FROM milk_production_individual m
	          WHERE m.sheep_id = s.id AND m.date = ?)
	      FROM sheep s WHERE s.id = ?`
	var father, mother sql.NullInt64
	var milk sql.NullFloat64
	s, err := scanSheep(r.db.QueryRowContext(ctx, q, model.GenderMale, model.GenderFemale, model.Today(), id),
		&father, &mother, &milk)
	if err != nil {
		return nil, notFound(err, ErrSheepNotFound)
	}
	if father.Valid {
		v := uint64(father.Int64)
		s.FatherID = &v
	}
	if mother.Valid {
		v := uint64(mother.Int64)
		s.MotherID = &v
	}
	if milk.Valid {
		s.MilkProduction = &milk.Float64
	}
	return s, nil
}

// ListByFarm returns every sheep of farmID ordered by id, each with its
// most recent milk volume.
func (r *SheepRepo) ListByFarm(ctx context.Context, farmID uint64) ([]*model.Sheep, error) {
	q := `SELECT ` + sheepColumns + `,
	        (SELECT m.volume FROM milk_production_individual m
	          WHERE m.sheep_id = s.id ORDER BY m.date DESC LIMIT 1)
	      FROM sheep s WHERE s.farm_id = ? ORDER BY s.id`
	rows, err := r.db.QueryContext(ctx, q, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Sheep{}
	for rows.Next() {
		var milk sql.NullFloat64
		s, err := scanSheep(rows, &milk)
		if err != nil {
			return nil, err
		}
		if milk.Valid {
			v := milk.Float64
			s.MilkProduction = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes the mutable columns of s.  When replaceParents is set the
// parentage links are replaced with s.FatherID and s.MotherID.
func (r *SheepRepo) Update(ctx context.Context, s *model.Sheep, replaceParents bool) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheep SET birth_date = ?, gender = ?, feeding_hay = ?, feeding_feed = ?, group_id = ?
			 WHERE id = ?`,
			s.BirthDate, s.Gender, s.FeedingHay, s.FeedingFeed, s.GroupID, s.ID); err != nil {
			return err
		}
		if !replaceParents {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheep_parentage WHERE offspring_id = ?", s.ID); err != nil {
			return err
		}
		return insertParents(ctx, tx, s.ID, s.FatherID, s.MotherID)
	})
}

// Delete removes a sheep together with its milk records, parentage links
// in both directions and appointment links.
func (r *SheepRepo) Delete(ctx context.Context, id uint64) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM milk_production_individual WHERE sheep_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheep_parentage WHERE parent_id = ? OR offspring_id = ?", id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM appointment_sheep WHERE sheep_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sheep WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSheepNotFound
		}
		return nil
	})
}

// Parents returns the sheep recorded as parents of id.
func (r *SheepRepo) Parents(ctx context.Context, id uint64) ([]*model.Sheep, error) {
	return r.related(ctx, `SELECT `+sheepColumns+` FROM sheep s
		JOIN sheep_parentage sp ON sp.parent_id = s.id
		WHERE sp.offspring_id = ? ORDER BY s.id`, id)
}

// Children returns the sheep recorded as offspring of id.
func (r *SheepRepo) Children(ctx context.Context, id uint64) ([]*model.Sheep, error) {
	return r.related(ctx, `SELECT `+sheepColumns+` FROM sheep s
		JOIN sheep_parentage sp ON sp.offspring_id = s.id
		WHERE sp.parent_id = ? ORDER BY s.id`, id)
}

func (r *SheepRepo) related(ctx context.Context, q string, id uint64) ([]*model.Sheep, error) {
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Sheep{}
	for rows.Next() {
		s, err := scanSheep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountInFarm returns how many of ids belong to farmID.  Duplicated ids
// are counted once.
func (r *SheepRepo) CountInFarm(ctx context.Context, farmID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, farmID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT id) FROM sheep WHERE farm_id = ? AND id IN ("+placeholders(len(ids))+")",
		args...).Scan(&n)
	return n, err
}

// UpsertMilk records volume for sheepID on date, replacing any earlier
// value for the same day.
func (r *SheepRepo) UpsertMilk(ctx context.Context, sheepID uint64, date model.Date, volume float64) (*model.MilkProduction, error) {
	const q = `INSERT INTO milk_production_individual (sheep_id, date, volume) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE volume = VALUES(volume)`
	if _, err := r.db.ExecContext(ctx, q, sheepID, date, volume); err != nil {
		return nil, err
	}
	var m model.MilkProduction
	err := r.db.QueryRowContext(ctx,
		"SELECT id, sheep_id, date, volume FROM milk_production_individual WHERE sheep_id = ? AND date = ?",
		sheepID, date).Scan(&m.ID, &m.SheepID, &m.Date, &m.Volume)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MilkHistory lists the milk records of sheepID, newest first.  When on is
// not nil only that day is returned.
func (r *SheepRepo) MilkHistory(ctx context.Context, sheepID uint64, on *model.Date) ([]model.MilkProduction, error) {
	q := "SELECT id, sheep_id, date, volume FROM milk_production_individual WHERE sheep_id = ?"
	args := []any{sheepID}
	if on != nil {
		q += " AND date = ?"
		args = append(args, *on)
	}
	q += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MilkProduction{}
	for rows.Next() {
		var m model.MilkProduction
		if err := rows.Scan(&m.ID, &m.SheepID, &m.Date, &m.Volume); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
