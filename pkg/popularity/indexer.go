package popularity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cipherhub/cipherhub/pkg/observability"
)

// Index is the materialized listing of all public ciphers, replaced
// wholesale on every rebuild.
type Index struct {
	Ciphers   []CipherSnapshot `json:"ciphers"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Indexer rebuilds and reads the public cipher index
type Indexer struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

// NewIndexer creates an indexer
func NewIndexer(db *sql.DB, logger *observability.Logger) *Indexer {
	return &Indexer{db: db, logger: logger, now: time.Now}
}

// Rebuild reads every public cipher in reverse title order and overwrites
// the index row
func (ix *Indexer) Rebuild(ctx context.Context) (*Index, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, title, download_count
		FROM ciphers
		WHERE is_public
		ORDER BY title DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query public ciphers: %w", err)
	}
	defer rows.Close()

	index := &Index{
		Ciphers:   []CipherSnapshot{},
		UpdatedAt: ix.now().UTC(),
	}
	for rows.Next() {
		var snap CipherSnapshot
		if err := rows.Scan(&snap.ID, &snap.Title, &snap.DownloadCount); err != nil {
			return nil, fmt.Errorf("failed to scan public cipher: %w", err)
		}
		index.Ciphers = append(index.Ciphers, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read public ciphers: %w", err)
	}

	data, err := json.Marshal(index.Ciphers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cipher index: %w", err)
	}

	_, err = ix.db.ExecContext(ctx, `
		INSERT INTO cipher_index (id, ciphers, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			ciphers = EXCLUDED.ciphers,
			updated_at = EXCLUDED.updated_at
	`, data, index.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to overwrite cipher index: %w", err)
	}

	ix.logger.WithField("ciphers", len(index.Ciphers)).Info("public cipher index rebuilt")

	return index, nil
}

// Current returns the stored index
func (ix *Indexer) Current(ctx context.Context) (*Index, error) {
	var data []byte
	var index Index
	err := ix.db.QueryRowContext(ctx,
		"SELECT ciphers, updated_at FROM cipher_index WHERE id = 1",
	).Scan(&data, &index.UpdatedAt)
	if err == sql.ErrNoRows {
		// never rebuilt: an empty index, not an error
		return &Index{Ciphers: []CipherSnapshot{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cipher index: %w", err)
	}

	if err := json.Unmarshal(data, &index.Ciphers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cipher index: %w", err)
	}

	return &index, nil
}
