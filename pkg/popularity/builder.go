// Package popularity maintains the materialized top-20 cipher ranking.
package popularity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cipherhub/cipherhub/pkg/observability"
)

// ViewSize is the number of ciphers kept in the ranking
const ViewSize = 20

// CipherSnapshot is one ranked entry in the popularity view
type CipherSnapshot struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DownloadCount int64  `json:"download_count"`
}

// View is the materialized ranking document. It is replaced wholesale on
// every rebuild; last rebuild wins.
type View struct {
	Ciphers   []CipherSnapshot `json:"ciphers"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Builder rebuilds and reads the popularity view
type Builder struct {
	db      *sql.DB
	cache   *Cache
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewBuilder creates a builder. cache may be nil when Redis is not
// configured; metrics may be nil when metrics are disabled.
func NewBuilder(db *sql.DB, cache *Cache, logger *observability.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{db: db, cache: cache, logger: logger, metrics: metrics, now: time.Now}
}

// Rebuild reads the top ciphers by download count and overwrites the view
// row. Ties fall wherever the ordered query puts them; there is no
// secondary sort key. The Redis cache write is best effort.
func (b *Builder) Rebuild(ctx context.Context) (*View, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, title, download_count
		FROM ciphers
		ORDER BY download_count DESC
		LIMIT $1
	`, ViewSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query top ciphers: %w", err)
	}
	defer rows.Close()

	view := &View{
		Ciphers:   make([]CipherSnapshot, 0, ViewSize),
		UpdatedAt: b.now().UTC(),
	}
	for rows.Next() {
		var snap CipherSnapshot
		if err := rows.Scan(&snap.ID, &snap.Title, &snap.DownloadCount); err != nil {
			return nil, fmt.Errorf("failed to scan cipher snapshot: %w", err)
		}
		view.Ciphers = append(view.Ciphers, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top ciphers: %w", err)
	}

	data, err := json.Marshal(view.Ciphers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal popularity view: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO popularity_view (id, ciphers, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			ciphers = EXCLUDED.ciphers,
			updated_at = EXCLUDED.updated_at
	`, data, view.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to overwrite popularity view: %w", err)
	}

	if b.cache != nil {
		if err := b.cache.SetView(ctx, view); err != nil {
			b.logger.WithError(err).Warn("popularity cache write failed")
		}
	}

	return view, nil
}

// Current returns the stored view, cache first. A cache failure falls
// through to Postgres.
func (b *Builder) Current(ctx context.Context) (*View, error) {
	if b.cache != nil {
		view, err := b.cache.GetView(ctx)
		switch {
		case err != nil:
			b.logger.WithError(err).Warn("popularity cache read failed")
		case view != nil:
			if b.metrics != nil {
				b.metrics.CacheHitsTotal.WithLabelValues("popularity").Inc()
			}
			return view, nil
		default:
			if b.metrics != nil {
				b.metrics.CacheMissesTotal.WithLabelValues("popularity").Inc()
			}
		}
	}

	var data []byte
	var view View
	err := b.db.QueryRowContext(ctx,
		"SELECT ciphers, updated_at FROM popularity_view WHERE id = 1",
	).Scan(&data, &view.UpdatedAt)
	if err == sql.ErrNoRows {
		// never rebuilt: an empty view, not an error
		return &View{Ciphers: []CipherSnapshot{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read popularity view: %w", err)
	}

	if err := json.Unmarshal(data, &view.Ciphers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal popularity view: %w", err)
	}

	return &view, nil
}
