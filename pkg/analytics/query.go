package analytics

import (
	"context"
	"database/sql"
	"fmt"
)

// DownloadCount is a per-cipher download total for one aggregation window
type DownloadCount struct {
	CipherID string
	Count    int64
}

// QueryEngine executes grouped aggregation queries against the analytics
// event store
type QueryEngine struct {
	db *sql.DB
}

// NewQueryEngine creates a new query engine
func NewQueryEngine(db *sql.DB) *QueryEngine {
	return &QueryEngine{db: db}
}

// DownloadCounts returns per-cipher download counts for the named event
// within the window, inclusive on both ends. Events without a cipher_id
// parameter are dropped by the query. Pairs are unordered and every count
// is positive. Errors are returned to the caller; the pipeline decides
// whether to degrade.
func (e *QueryEngine) DownloadCounts(ctx context.Context, eventName string, window DateRange) ([]DownloadCount, error) {
	query := `
		SELECT params->>'cipher_id' AS cipher_id, COUNT(*) AS downloads
		FROM analytics_events
		WHERE event_name = $1
		  AND event_date >= $2::date
		  AND event_date <= $3::date
		  AND params->>'cipher_id' IS NOT NULL
		  AND params->>'cipher_id' <> ''
		GROUP BY params->>'cipher_id'
	`
	rows, err := e.db.QueryContext(ctx, query, eventName, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query download counts: %w", err)
	}
	defer rows.Close()

	var counts []DownloadCount
	for rows.Next() {
		var dc DownloadCount
		if err := rows.Scan(&dc.CipherID, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan download count: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read download counts: %w", err)
	}

	return counts, nil
}
