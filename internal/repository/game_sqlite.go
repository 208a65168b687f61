package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"steamboard-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenSQLite opens (or creates) the library database file and ensures the
// schema exists. The returned handle is shared by the game and metadata
// repositories.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLite] Initialized with database: %s", dbPath)
	return db, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS games (
		appid INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		playtime_forever INTEGER NOT NULL DEFAULT 0,
		last_played INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Backlog',
		hidden INTEGER NOT NULL DEFAULT 0,
		needs_update INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS library_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		meta TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
	`
	_, err := db.Exec(query)
	return err
}

// SQLiteGameRepository implements GameRepository using SQLite.
type SQLiteGameRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteGameRepository creates a game repository over an opened handle.
func NewSQLiteGameRepository(db *sql.DB) *SQLiteGameRepository {
	return &SQLiteGameRepository{db: db}
}

const sqliteUpsertGame = `
	INSERT INTO games (appid, name, playtime_forever, last_played, status, hidden, needs_update, detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(appid) DO UPDATE SET
		name = excluded.name,
		playtime_forever = excluded.playtime_forever,
		last_played = excluded.last_played,
		status = excluded.status,
		hidden = excluded.hidden,
		needs_update = excluded.needs_update,
		detail = excluded.detail`

// Upsert inserts or updates a single game record.
func (r *SQLiteGameRepository) Upsert(ctx context.Context, g model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	detail, err := json.Marshal(g.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail for app %d: %w", g.AppID, err)
	}

	_, err = r.db.ExecContext(ctx, sqliteUpsertGame,
		g.AppID, g.Name, g.PlaytimeForever, g.LastPlayed, g.Status, boolToInt(g.Hidden), boolToInt(g.NeedsUpdate), string(detail))
	if err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", g.AppID, err)
	}
	return nil
}

// UpsertAll inserts or updates many records in one transaction.
func (r *SQLiteGameRepository) UpsertAll(ctx context.Context, games []model.Game) error {
	if len(games) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertGame)
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
func (r *SQLiteGameRepository) GetAll(ctx context.Context) ([]model.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT appid, name, playtime_forever, last_played, status, hidden, needs_update, detail FROM games`)
	if err != nil {
		return nil, fmt.Errorf("failed to select games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// Clear removes every game record.
func (r *SQLiteGameRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("failed to clear games: %w", err)
	}
	return nil
}

// Stats returns statistics about the games table.
func (r *SQLiteGameRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

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

	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteGameRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanGames decodes game rows. Detail blobs that fail to decode degrade to
// an absent detail rather than failing the whole load.
func scanGames(rows *sql.Rows) ([]model.Game, error) {
	var result []model.Game
	for rows.Next() {
		var g model.Game
		var hidden, needsUpdate int
		var detail string
		if err := rows.Scan(&g.AppID, &g.Name, &g.PlaytimeForever, &g.LastPlayed, &g.Status, &hidden, &needsUpdate, &detail); err != nil {
			return nil, err
		}
		g.Hidden = hidden != 0
		g.NeedsUpdate = needsUpdate != 0
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &g.Detail); err != nil {
				log.Printf("[GameRepository] Dropping undecodable detail for app %d: %v", g.AppID, err)
				g.Detail = model.AchievementDetail{}
			}
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Ensure SQLiteGameRepository implements GameRepository
var _ GameRepository = (*SQLiteGameRepository)(nil)
