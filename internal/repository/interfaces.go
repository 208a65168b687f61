package repository

import (
	"context"

	"steamboard-api/internal/model"
)

// GameRepository defines durable access to per-game board records.
// Writes are idempotent on app id.
type GameRepository interface {
	// Upsert inserts or updates a single game record.
	Upsert(ctx context.Context, g model.Game) error

	// UpsertAll inserts or updates many records transactionally: either all
	// writes land or none do.
	UpsertAll(ctx context.Context, games []model.Game) error

	// GetAll returns every stored game record.
	GetAll(ctx context.Context) ([]model.Game, error)

	// Clear removes every game record.
	Clear(ctx context.Context) error

	// Stats returns storage statistics for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// MetadataRepository defines durable access to the small library metadata
// document (credentials, columns, last-sync timestamp, profile snapshot).
// It is persisted separately from game records: games churn on every sync,
// metadata changes rarely.
type MetadataRepository interface {
	// Load returns the stored metadata. found is false when nothing has been
	// saved yet; missing fields in an older blob are tolerated.
	Load(ctx context.Context) (meta model.LibraryMeta, found bool, err error)

	// Save overwrites the metadata document.
	Save(ctx context.Context, meta model.LibraryMeta) error

	// Clear removes the metadata document.
	Clear(ctx context.Context) error
}
