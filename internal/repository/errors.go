// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is wrapped by every per-entity "not found" error.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource outside their farm.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an email is already used by a farmer or
// a veterinarian.  Emails are unique across both tables because login
// resolves them in order.
var ErrEmailExists = fmt.Errorf("%w: email already exists", ErrConflict)

var (
	ErrFarmNotFound         = fmt.Errorf("farm %w", ErrNotFound)
	ErrFarmerNotFound       = fmt.Errorf("farmer %w", ErrNotFound)
	ErrVeterinarianNotFound = fmt.Errorf("veterinarian %w", ErrNotFound)
	ErrSheepNotFound        = fmt.Errorf("sheep %w", ErrNotFound)
	ErrGroupNotFound        = fmt.Errorf("sheep group %w", ErrNotFound)
	ErrInventoryNotFound    = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrSensorNotFound       = fmt.Errorf("sensor %w", ErrNotFound)
	ErrAppointmentNotFound  = fmt.Errorf("appointment %w", ErrNotFound)
)

// isDuplicate reports whether err is a MySQL unique key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}

// notFound maps sql.ErrNoRows onto the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// inTx runs fn inside a transaction that is committed when fn returns nil
// and rolled back otherwise.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
