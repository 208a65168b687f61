package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"steamboard-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens the library database on MySQL and ensures the schema
// exists. Used when several board instances share one server-side store.
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQL] Initialized library store")
	return db, nil
}

func createMySQLTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS games (
			appid INT PRIMARY KEY,
			name VARCHAR(512) NOT NULL,
			playtime_forever INT NOT NULL DEFAULT 0,
			last_played BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(128) NOT NULL DEFAULT 'Backlog',
			hidden TINYINT(1) NOT NULL DEFAULT 0,
			needs_update TINYINT(1) NOT NULL DEFAULT 0,
			detail MEDIUMTEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS library_meta (
			id INT PRIMARY KEY,
			meta MEDIUMTEXT NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// MySQLGameRepository implements GameRepository using MySQL.
type MySQLGameRepository struct {
	db *sql.DB
}

// NewMySQLGameRepository creates a game repository over an opened handle.
func NewMySQLGameRepository(db *sql.DB) *MySQLGameRepository {
	return &MySQLGameRepository{db: db}
}

const mysqlUpsertGame = `
	INSERT INTO games (appid, name, playtime_forever, last_played, status, hidden, needs_update, detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		name = VALUES(name),
		playtime_forever = VALUES(playtime_forever),
		last_played = VALUES(last_played),
		status = VALUES(status),
		hidden = VALUES(hidden),
		needs_update = VALUES(needs_update),
		detail = VALUES(detail)`

// Upsert inserts or updates a single game record.
func (r *MySQLGameRepository) Upsert(ctx context.Context, g model.Game) error {
	detail, err := json.Marshal(g.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail for app %d: %w", g.AppID, err)
	}

	_, err = r.db.ExecContext(ctx, mysqlUpsertGame,
		g.AppID, g.Name, g.PlaytimeForever, g.LastPlayed, g.Status, boolToInt(g.Hidden), boolToInt(g.NeedsUpdate), string(detail))
	if err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", g.AppID, err)
	}
	return nil
}

// UpsertAll inserts or updates many records in one transaction.
func (r *MySQLGameRepository) UpsertAll(ctx context.Context, games []model.Game) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, mysqlUpsertGame)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		detail, err := json.Marshal(g.Detail)
		if err != nil {
			return fmt.Errorf("failed to encode detail for app %d: %w", g.AppID, err)
		}
		_, err = stmt.ExecContext(ctx,
			g.AppID, g.Name, g.PlaytimeForever, g.LastPlayed, g.Status, boolToInt(g.Hidden), boolToInt(g.NeedsUpdate), string(detail))
		if err != nil {
			return fmt.Errorf("failed to batch upsert game %d: %w", g.AppID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAll returns every stored game record.
func (r *MySQLGameRepository) GetAll(ctx context.Context) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT appid, name, playtime_forever, last_played, status, hidden, needs_update, detail FROM games`)
	if err != nil {
		return nil, fmt.Errorf("failed to select games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// Clear removes every game record.
func (r *MySQLGameRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("failed to clear games: %w", err)
	}
	return nil
}

// Stats returns statistics about the games table.
func (r *MySQLGameRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var count, pending int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&count); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE needs_update = 1`).Scan(&pending); err != nil {
		return nil, err
	}
	stats["total_games"] = count
	stats["pending_detail"] = pending

	return stats, nil
}

// Close closes the database connection.
func (r *MySQLGameRepository) Close() error {
	return r.db.Close()
}

// MySQLMetadataRepository implements MetadataRepository using MySQL.
type MySQLMetadataRepository struct {
	db *sql.DB
}

// NewMySQLMetadataRepository creates a metadata repository over an opened handle.
func NewMySQLMetadataRepository(db *sql.DB) *MySQLMetadataRepository {
	return &MySQLMetadataRepository{db: db}
}

// Load returns the stored metadata document.
func (r *MySQLMetadataRepository) Load(ctx context.Context) (model.LibraryMeta, bool, error) {
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
func (r *MySQLMetadataRepository) Save(ctx context.Context, meta model.LibraryMeta) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO library_meta (id, meta) VALUES (1, ?)
		ON DUPLICATE KEY UPDATE meta = VALUES(meta)`, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// Clear removes the metadata document.
func (r *MySQLMetadataRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM library_meta`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

// Ensure MySQL repositories implement their interfaces
var (
	_ GameRepository     = (*MySQLGameRepository)(nil)
	_ MetadataRepository = (*MySQLMetadataRepository)(nil)
)
