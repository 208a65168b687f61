package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"steamboard-api/internal/cache"
	"steamboard-api/internal/model"
	"steamboard-api/internal/repository"
	"steamboard-api/internal/steam"
)

// Service-level sentinel errors, mapped to HTTP categories by the handlers.
var (
	ErrRefreshInProgress = errors.New("a library refresh is already in progress")
	ErrNotConfigured     = errors.New("set your Steam ID and API key in profile settings first")
	ErrGameNotFound      = errors.New("game not found in library")
	ErrColumnNotFound    = errors.New("column not found")
	ErrColumnExists      = errors.New("column already exists")
	ErrDetailInFlight    = errors.New("a detail fetch for this game is already in progress")
)

// SteamClient is the remote platform surface the sync core depends on.
type SteamClient interface {
	FetchOwnedGames(ctx context.Context, creds model.Credentials) ([]steam.OwnedGame, error)
	FetchPlayerSummary(ctx context.Context, creds model.Credentials) (json.RawMessage, error)
	FetchPlayerAchievements(ctx context.Context, creds model.Credentials, appID int) (*steam.PlayerStats, error)
	FetchSchema(ctx context.Context, creds model.Credentials, appID int) ([]steam.SchemaAchievement, error)
	FetchGlobalPercentages(ctx context.Context, appID int) ([]steam.GlobalPercent, error)
}

// Options tunes the sync pipeline.
type Options struct {
	// BatchSize bounds concurrent detail fetches per batch.
	BatchSize int
	// BatchDelay is the pause between detail batches.
	BatchDelay time.Duration
	// CacheTTL applies to cached profile snapshots and global percentages.
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 3
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	return o
}

// LibraryService owns the board state: the game records, the column list and
// the sync metadata. All mutation goes through it; the repositories are its
// write-through durability layer and never a source of truth after startup.
// Durable-write failures are logged and the in-memory state carries on.
type LibraryService struct {
	client   SteamClient
	games    repository.GameRepository
	metaRepo repository.MetadataRepository
	cache    cache.Cache
	opts     Options

	mu         sync.Mutex
	byID       map[int]model.Game
	order      []int
	meta       model.LibraryMeta
	refreshing bool
	inFlight   map[int]bool
	lastError  string

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewLibraryService loads persisted state and returns the service handle that
// is threaded to every consumer. Load failures degrade to an empty in-memory
// library.
func NewLibraryService(client SteamClient, games repository.GameRepository, metaRepo repository.MetadataRepository, c cache.Cache, opts Options) *LibraryService {
	s := &LibraryService{
		client:   client,
		games:    games,
		metaRepo: metaRepo,
		cache:    c,
		opts:     opts.withDefaults(),
		byID:     make(map[int]model.Game),
		meta:     model.NewLibraryMeta(),
		inFlight: make(map[int]bool),
		subs:     make(map[chan struct{}]struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, found, err := metaRepo.Load(ctx)
	if err != nil {
		log.Printf("[LibraryService] Failed to load metadata, starting fresh: %v", err)
	} else {
		s.meta = meta
		if found {
			log.Printf("[LibraryService] Loaded metadata: %d columns, last synced %d", len(meta.Columns), meta.LastSynced)
		}
	}

	stored, err := games.GetAll(ctx)
	if err != nil {
		log.Printf("[LibraryService] Failed to load games, starting empty: %v", err)
	} else {
		for _, g := range stored {
			g.LoadingDetails = false
			s.byID[g.AppID] = g
			s.order = append(s.order, g.AppID)
		}
		sort.Ints(s.order)
		log.Printf("[LibraryService] Loaded %d games", len(stored))
	}

	s.repairColumns()
	return s
}

// Snapshot is the reactive state surface handed to the UI.
type Snapshot struct {
	Games      []model.Game    `json:"games"`
	Columns    []string        `json:"columns"`
	LastSynced int64           `json:"last_synced"`
	Refreshing bool            `json:"refreshing"`
	LastError  string          `json:"last_error,omitempty"`
	Profile    json.RawMessage `json:"profile,omitempty"`
}

// Snapshot returns a copy of the current library state.
func (s *LibraryService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]model.Game, 0, len(s.order))
	for _, id := range s.order {
		games = append(games, s.byID[id])
	}
	columns := make([]string, len(s.meta.Columns))
	copy(columns, s.meta.Columns)

	return Snapshot{
		Games:      games,
		Columns:    columns,
		LastSynced: s.meta.LastSynced,
		Refreshing: s.refreshing,
		LastError:  s.lastError,
		Profile:    s.meta.Profile,
	}
}

// Game returns one record by app id.
func (s *LibraryService) Game(appID int) (model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.byID[appID]
	if !ok {
		return model.Game{}, ErrGameNotFound
	}
	return g, nil
}

// SetStatus moves a game to another board column.
func (s *LibraryService) SetStatus(ctx context.Context, appID int, column string) error {
	s.mu.Lock()
	g, ok := s.byID[appID]
	if !ok {
		s.mu.Unlock()
		return ErrGameNotFound
	}
	if !s.meta.HasColumn(column) {
		s.mu.Unlock()
		return ErrColumnNotFound
	}
	g.Status = column
	s.byID[appID] = g
	s.mu.Unlock()

	s.persistGame(ctx, g)
	s.notify()
	return nil
}

// SetHidden toggles a game's visibility. Hidden games are skipped by the
// automatic detail refresh.
func (s *LibraryService) SetHidden(ctx context.Context, appID int, hidden bool) error {
	s.mu.Lock()
	g, ok := s.byID[appID]
	if !ok {
		s.mu.Unlock()
		return ErrGameNotFound
	}
	g.Hidden = hidden
	s.byID[appID] = g
	s.mu.Unlock()

	s.persistGame(ctx, g)
	s.notify()
	return nil
}

// AddColumn appends a new board column.
func (s *LibraryService) AddColumn(ctx context.Context, name string) error {
	if name == "" {
		return ErrColumnNotFound
	}

	s.mu.Lock()
	if s.meta.HasColumn(name) {
		s.mu.Unlock()
		return ErrColumnExists
	}
	s.meta.Columns = append(s.meta.Columns, name)
	meta := s.meta
	s.mu.Unlock()

	s.persistMeta(ctx, meta)
	s.notify()
	return nil
}

// RemoveColumn deletes a column and reassigns its games to the first
// remaining column, falling back to the default lane.
func (s *LibraryService) RemoveColumn(ctx context.Context, name string) error {
	s.mu.Lock()
	idx := -1
	for i, c := range s.meta.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return ErrColumnNotFound
	}

	fallback := model.DefaultColumn
	if s.meta.Columns[0] != name {
		fallback = s.meta.Columns[0]
	} else if len(s.meta.Columns) > 1 {
		fallback = s.meta.Columns[1]
	}

	var moved []model.Game
	for id, g := range s.byID {
		if g.Status == name {
			g.Status = fallback
			s.byID[id] = g
			moved = append(moved, g)
		}
	}
	s.meta.Columns = append(s.meta.Columns[:idx], s.meta.Columns[idx+1:]...)
	meta := s.meta
	s.mu.Unlock()

	s.persistGames(ctx, moved)
	s.persistMeta(ctx, meta)
	s.notify()
	return nil
}

// SetCredentials stores the Steam credential pair and drops the cached
// profile snapshot tied to the old pair.
func (s *LibraryService) SetCredentials(ctx context.Context, creds model.Credentials) error {
	s.mu.Lock()
	old := s.meta.Credentials
	s.meta.Credentials = creds
	meta := s.meta
	s.mu.Unlock()

	if s.cache != nil && old.SteamID != "" && old.SteamID != creds.SteamID {
		if err := s.cache.Delete(ctx, profileCacheKey(old.SteamID)); err != nil {
			log.Printf("[LibraryService] Failed to drop cached profile: %v", err)
		}
	}

	s.persistMeta(ctx, meta)
	s.notify()
	return nil
}

// Credentials returns the stored credential pair.
func (s *LibraryService) Credentials() model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Credentials
}

// ClearAll wipes the library: games, metadata and caches. This is the only
// way records ever leave the store.
func (s *LibraryService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.byID = make(map[int]model.Game)
	s.order = nil
	s.meta = model.NewLibraryMeta()
	s.lastError = ""
	s.mu.Unlock()

	if err := s.games.Clear(ctx); err != nil {
		log.Printf("[LibraryService] Failed to clear games store: %v", err)
	}
	if err := s.metaRepo.Clear(ctx); err != nil {
		log.Printf("[LibraryService] Failed to clear metadata store: %v", err)
	}
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			log.Printf("[LibraryService] Failed to clear cache: %v", err)
		}
	}

	s.notify()
	return nil
}

// Subscribe registers a change listener. Every committed mutation produces a
// tick; the returned cancel func must be called to release the channel.
func (s *LibraryService) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
	return ch, cancel
}

// notify wakes all subscribers without blocking; a subscriber that has not
// drained its pending tick simply coalesces.
func (s *LibraryService) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// repairColumns enforces the invariant that every game's column exists in
// the column list, repairing strays to the default lane.
func (s *LibraryService) repairColumns() {
	if !s.meta.HasColumn(model.DefaultColumn) {
		s.meta.Columns = append([]string{model.DefaultColumn}, s.meta.Columns...)
	}
	for id, g := range s.byID {
		if g.Status == "" || !s.meta.HasColumn(g.Status) {
			g.Status = model.DefaultColumn
			s.byID[id] = g
		}
	}
}

// persistGame writes one record through to the store; failures are logged
// and the in-memory state stays authoritative.
func (s *LibraryService) persistGame(ctx context.Context, g model.Game) {
	g.LoadingDetails = false
	if err := s.games.Upsert(ctx, g); err != nil {
		log.Printf("[LibraryService] Failed to persist game %d: %v", g.AppID, err)
	}
}

func (s *LibraryService) persistGames(ctx context.Context, games []model.Game) {
	if len(games) == 0 {
		return
	}
	for i := range games {
		games[i].LoadingDetails = false
	}
	if err := s.games.UpsertAll(ctx, games); err != nil {
		log.Printf("[LibraryService] Failed to persist %d games: %v", len(games), err)
	}
}

func (s *LibraryService) persistMeta(ctx context.Context, meta model.LibraryMeta) {
	if err := s.metaRepo.Save(ctx, meta); err != nil {
		log.Printf("[LibraryService] Failed to persist metadata: %v", err)
	}
}
