package counters

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cipherhub/cipherhub/pkg/analytics"
	"github.com/cipherhub/cipherhub/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestApply_SingleBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(3), "cipher-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(2), "cipher-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applier := NewApplier(db, 0, testLogger())
	res, err := applier.Apply(context.Background(), []analytics.DownloadCount{
		{CipherID: "cipher-a", Count: 3},
		{CipherID: "cipher-b", Count: 2},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Applied != 2 || res.Skipped != 0 {
		t.Errorf("Expected 2 applied, 0 skipped, got %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestApply_NotIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	// reapplying the same window issues the same unconditional increment
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE ciphers SET download_count").
			WithArgs(int64(3), "cipher-a").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applier := NewApplier(db, 0, testLogger())
	counts := []analytics.DownloadCount{{CipherID: "cipher-a", Count: 3}}

	for i := 0; i < 2; i++ {
		if _, err := applier.Apply(context.Background(), counts); err != nil {
			t.Fatalf("Apply %d failed: %v", i, err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestApply_MissingCipherSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(5), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(1), "cipher-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applier := NewApplier(db, 0, testLogger())
	res, err := applier.Apply(context.Background(), []analytics.DownloadCount{
		{CipherID: "ghost", Count: 5},
		{CipherID: "cipher-a", Count: 1},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Applied != 1 || res.Skipped != 1 {
		t.Errorf("Expected 1 applied, 1 skipped, got %+v", res)
	}
}

func TestApply_ChunksIntoBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	// batch size 2 with 3 increments: two transactions
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(1), "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(2), "b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(3), "c").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applier := NewApplier(db, 2, testLogger())
	res, err := applier.Apply(context.Background(), []analytics.DownloadCount{
		{CipherID: "a", Count: 1},
		{CipherID: "b", Count: 2},
		{CipherID: "c", Count: 3},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Applied != 3 {
		t.Errorf("Expected 3 applied, got %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestApply_ExecErrorRollsBackBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ciphers SET download_count").
		WithArgs(int64(1), "a").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	applier := NewApplier(db, 0, testLogger())
	_, err = applier.Apply(context.Background(), []analytics.DownloadCount{
		{CipherID: "a", Count: 1},
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
