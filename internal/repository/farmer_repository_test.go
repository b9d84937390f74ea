package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

func TestCreateWithFarm(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO account_email \(email\) VALUES \(\?\)`).
		WithArgs("ana@farm.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO farm \(name, location\)`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`INSERT INTO farmer`).
		WithArgs("Ana", "ana@farm.com", "hash", uint64(7)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	farm := &model.Farm{Name: "Green Hill"}
	f := &model.Farmer{Name: "Ana", Email: "Ana@Farm.com", PasswordHash: "hash"}
	if err := NewFarmerRepo(db).CreateWithFarm(context.Background(), farm, f); err != nil {
		t.Fatalf("create: %v", err)
	}
	if farm.ID != 7 || f.FarmID != 7 || f.ID != 3 {
		t.Fatalf("unexpected ids farm=%d farmer=%d farmer.farm=%d", farm.ID, f.ID, f.FarmID)
	}
}

func TestCreateWithFarmEmailTaken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO account_email`).
		WithArgs("a@x.com").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := NewFarmerRepo(db).CreateWithFarm(context.Background(), &model.Farm{Name: "x"}, &model.Farmer{Email: "a@x.com"})
	if !errors.Is(err, ErrEmailExists) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestGetFarmerNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM farmer WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "farm_id"}))

	_, err := NewFarmerRepo(db).GetByID(context.Background(), 9)
	if !errors.Is(err, ErrFarmerNotFound) {
		t.Fatalf("expected ErrFarmerNotFound, got %v", err)
	}
}

func TestVeterinarianUpdateKeepsOwnEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT email FROM veterinarian WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("vet@x.com"))
	mock.ExpectExec(`UPDATE veterinarian SET name = \?, email = \?, password_hash = \? WHERE id = \?`).
		WithArgs("Dr Vet", "vet@x.com", "hash", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v := &model.Veterinarian{ID: 4, Name: "Dr Vet", Email: "vet@x.com", PasswordHash: "hash"}
	if err := NewVeterinarianRepo(db).Update(context.Background(), v); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestVeterinarianCreateDuplicateFromDriver(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO account_email`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO veterinarian`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectRollback()

	err := NewVeterinarianRepo(db).Create(context.Background(), &model.Veterinarian{Email: "v@x.com", FarmID: 1, FarmerID: 1})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestVeterinarianCreateLosesEmailToFarmer(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO account_email`).
		WithArgs("dup@x.com").
		WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	err := NewVeterinarianRepo(db).Create(context.Background(), &model.Veterinarian{Email: "Dup@x.com", FarmID: 1, FarmerID: 1})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestVeterinarianUpdateMovesEmailClaim(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT email FROM veterinarian WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("old@x.com"))
	mock.ExpectExec(`INSERT INTO account_email \(email\) VALUES \(\?\)`).
		WithArgs("new@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM account_email WHERE email = \?`).
		WithArgs("old@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE veterinarian SET`).
		WithArgs("Dr Vet", "new@x.com", "hash", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v := &model.Veterinarian{ID: 4, Name: "Dr Vet", Email: "New@x.com", PasswordHash: "hash"}
	if err := NewVeterinarianRepo(db).Update(context.Background(), v); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestVeterinarianUpdateEmailTaken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT email FROM veterinarian WHERE id = \? FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("old@x.com"))
	mock.ExpectExec(`INSERT INTO account_email`).
		WithArgs("a@x.com").
		WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	v := &model.Veterinarian{ID: 4, Email: "a@x.com"}
	if err := NewVeterinarianRepo(db).Update(context.Background(), v); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}
