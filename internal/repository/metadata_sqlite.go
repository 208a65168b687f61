package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"steamboard-api/internal/model"
)

// SQLiteMetadataRepository implements MetadataRepository using the single-row
// library_meta table. The document is stored as one JSON blob so older blobs
// with missing fields load cleanly.
type SQLiteMetadataRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteMetadataRepository creates a metadata repository over an opened handle.
func NewSQLiteMetadataRepository(db *sql.DB) *SQLiteMetadataRepository {
	return &SQLiteMetadataRepository{db: db}
}

// Load returns the stored metadata document.
func (r *SQLiteMetadataRepository) Load(ctx context.Context) (model.LibraryMeta, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var blob string
	err := r.db.QueryRowContext(ctx, `SELECT meta FROM library_meta WHERE id = 1`).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.NewLibraryMeta(), false, nil
		}
		return model.NewLibraryMeta(), false, fmt.Errorf("failed to load metadata: %w", err)
	}

	meta := model.NewLibraryMeta()
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return model.NewLibraryMeta(), false, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		meta.Columns = model.DefaultColumns()
	}
	return meta, true, nil
}

// Save overwrites the metadata document.
func (r *SQLiteMetadataRepository) Save(ctx context.Context, meta model.LibraryMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO library_meta (id, meta) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET meta = excluded.meta`, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// Clear removes the metadata document.
func (r *SQLiteMetadataRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM library_meta`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

// Ensure SQLiteMetadataRepository implements MetadataRepository
var _ MetadataRepository = (*SQLiteMetadataRepository)(nil)
