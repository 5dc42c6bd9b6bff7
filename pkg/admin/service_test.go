package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestGrantAdmin_ByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT uid FROM users WHERE email").
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("u1"))
	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(true, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	service := NewService(db, "", nil)
	result, err := service.GrantAdmin(context.Background(), "admin@example.com", "")
	if err != nil {
		t.Fatalf("GrantAdmin failed: %v", err)
	}
	if !result.Success || result.UID != "u1" {
		t.Errorf("Unexpected result: %+v", result)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestGrantAdmin_ByUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(true, "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	service := NewService(db, "", nil)
	result, err := service.GrantAdmin(context.Background(), "", "u2")
	if err != nil {
		t.Fatalf("GrantAdmin failed: %v", err)
	}
	if result.UID != "u2" {
		t.Errorf("Expected uid u2, got %s", result.UID)
	}
}

func TestGrantAdmin_UnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT uid FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows([]string{"uid"}))

	service := NewService(db, "", nil)
	if _, err := service.GrantAdmin(context.Background(), "ghost@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGrantAdmin_UnknownUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET is_admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	service := NewService(db, "", nil)
	if _, err := service.GrantAdmin(context.Background(), "", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRevokeAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(false, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	service := NewService(db, "", nil)
	result, err := service.RevokeAdmin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RevokeAdmin failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success")
	}
}

func TestBootstrapFirstAdmin(t *testing.T) {
	t.Run("correct secret", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock database: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT uid FROM users WHERE email").
			WithArgs("first@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("u1"))
		mock.ExpectExec("UPDATE users SET is_admin").
			WithArgs(true, "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		service := NewService(db, "hunter2", nil)
		result, err := service.BootstrapFirstAdmin(context.Background(), "first@example.com", "hunter2")
		if err != nil {
			t.Fatalf("BootstrapFirstAdmin failed: %v", err)
		}
		if !result.Success {
			t.Error("Expected success")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		db, _, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock database: %v", err)
		}
		defer db.Close()

		service := NewService(db, "hunter2", nil)
		if _, err := service.BootstrapFirstAdmin(context.Background(), "a@b.c", "nope"); !errors.Is(err, ErrInvalidSecret) {
			t.Errorf("Expected ErrInvalidSecret, got %v", err)
		}
	})

	t.Run("disabled when unconfigured", func(t *testing.T) {
		db, _, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock database: %v", err)
		}
		defer db.Close()

		service := NewService(db, "", nil)
		if _, err := service.BootstrapFirstAdmin(context.Background(), "a@b.c", ""); !errors.Is(err, ErrInvalidSecret) {
			t.Errorf("Expected ErrInvalidSecret, got %v", err)
		}
	})
}
