package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func testWindow() DateRange {
	return DateRange{
		Start: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestDownloadCounts_GroupsByCipher(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	window := testWindow()
	mock.ExpectQuery("SELECT params->>'cipher_id'").
		WithArgs("cipher_downloaded", window.Start, window.End).
		WillReturnRows(sqlmock.NewRows([]string{"cipher_id", "downloads"}).
			AddRow("cipher-a", 3).
			AddRow("cipher-b", 2))

	engine := NewQueryEngine(db)
	counts, err := engine.DownloadCounts(context.Background(), "cipher_downloaded", window)
	if err != nil {
		t.Fatalf("DownloadCounts failed: %v", err)
	}

	// order is irrelevant, compare as a set
	got := make(map[string]int64, len(counts))
	for _, c := range counts {
		if c.Count <= 0 {
			t.Errorf("Count for %s must be positive, got %d", c.CipherID, c.Count)
		}
		got[c.CipherID] = c.Count
	}
	want := map[string]int64{"cipher-a": 3, "cipher-b": 2}
	if len(got) != len(want) {
		t.Fatalf("Expected %d pairs, got %d", len(want), len(got))
	}
	for id, n := range want {
		if got[id] != n {
			t.Errorf("Expected %s=%d, got %d", id, n, got[id])
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestDownloadCounts_EmptyWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	window := testWindow()
	mock.ExpectQuery("SELECT params->>'cipher_id'").
		WithArgs("cipher_downloaded", window.Start, window.End).
		WillReturnRows(sqlmock.NewRows([]string{"cipher_id", "downloads"}))

	engine := NewQueryEngine(db)
	counts, err := engine.DownloadCounts(context.Background(), "cipher_downloaded", window)
	if err != nil {
		t.Fatalf("DownloadCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected no counts, got %d", len(counts))
	}
}

func TestDownloadCounts_QueryErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	window := testWindow()
	mock.ExpectQuery("SELECT params->>'cipher_id'").
		WithArgs("cipher_downloaded", window.Start, window.End).
		WillReturnError(errors.New("connection refused"))

	engine := NewQueryEngine(db)
	_, err = engine.DownloadCounts(context.Background(), "cipher_downloaded", window)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}
