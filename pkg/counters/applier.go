// Package counters applies aggregated download counts as persistent,
// batched counter increments on cipher rows.
package counters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cipherhub/cipherhub/pkg/analytics"
	"github.com/cipherhub/cipherhub/pkg/observability"
)

// DefaultBatchSize caps increments per transaction. Matches the upstream
// store's per-batch write limit.
const DefaultBatchSize = 500

// Applier commits download-count increments to the cipher store. Increments
// are unconditional adds, not idempotent writes: applying the same window
// twice doubles the counts.
type Applier struct {
	db        *sql.DB
	batchSize int
	logger    *observability.Logger
}

// NewApplier creates an applier. batchSize <= 0 selects DefaultBatchSize.
func NewApplier(db *sql.DB, batchSize int, logger *observability.Logger) *Applier {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Applier{db: db, batchSize: batchSize, logger: logger}
}

// Result reports how a set of increments was applied
type Result struct {
	Applied int // increments committed
	Skipped int // increments dropped because the cipher no longer exists
}

// Apply increments download_count for each pair. All increments within one
// batch commit atomically; when the input exceeds the batch size, atomicity
// degrades to per-batch. An increment targeting a missing cipher is skipped
// and logged, never created.
func (a *Applier) Apply(ctx context.Context, counts []analytics.DownloadCount) (Result, error) {
	var total Result

	for start := 0; start < len(counts); start += a.batchSize {
		end := start + a.batchSize
		if end > len(counts) {
			end = len(counts)
		}

		res, err := a.applyBatch(ctx, counts[start:end])
		total.Applied += res.Applied
		total.Skipped += res.Skipped
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (a *Applier) applyBatch(ctx context.Context, batch []analytics.DownloadCount) (Result, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin counter batch: %w", err)
	}

	var res Result
	for _, c := range batch {
		out, err := tx.ExecContext(ctx,
			"UPDATE ciphers SET download_count = download_count + $1, updated_at = NOW() WHERE id = $2",
			c.Count, c.CipherID,
		)
		if err != nil {
			tx.Rollback()
			return Result{}, fmt.Errorf("failed to increment cipher %s: %w", c.CipherID, err)
		}

		affected, err := out.RowsAffected()
		if err != nil {
			tx.Rollback()
			return Result{}, fmt.Errorf("failed to read rows affected for cipher %s: %w", c.CipherID, err)
		}

		if affected == 0 {
			res.Skipped++
			a.logger.WithField("cipher_id", c.CipherID).Warn("cipher not found, increment skipped")
			continue
		}
		res.Applied++
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("failed to commit counter batch: %w", err)
	}

	return res, nil
}
