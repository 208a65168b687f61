package service

import (
	"context"
	"encoding/json"
	"sync"

	"steamboard-api/internal/model"
	"steamboard-api/internal/steam"
)

// fakeSteamClient implements SteamClient with overridable funcs and records
// per-game call counts. The default responses yield a small full detail.
type fakeSteamClient struct {
	mu           sync.Mutex
	ownedGames   []steam.OwnedGame
	ownedErr     error
	achievements func(appID int) (*steam.PlayerStats, error)
	schema       func(appID int) ([]steam.SchemaAchievement, error)
	percentages  func(appID int) ([]steam.GlobalPercent, error)

	achievementCalls map[int]int
}

func newFakeSteamClient(owned ...steam.OwnedGame) *fakeSteamClient {
	return &fakeSteamClient{
		ownedGames:       owned,
		achievementCalls: make(map[int]int),
	}
}

func (f *fakeSteamClient) FetchOwnedGames(ctx context.Context, creds model.Credentials) ([]steam.OwnedGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownedErr != nil {
		return nil, f.ownedErr
	}
	return f.ownedGames, nil
}

func (f *fakeSteamClient) FetchPlayerSummary(ctx context.Context, creds model.Credentials) (json.RawMessage, error) {
	return json.RawMessage(`{"personaname":"tester"}`), nil
}

func (f *fakeSteamClient) FetchPlayerAchievements(ctx context.Context, creds model.Credentials, appID int) (*steam.PlayerStats, error) {
	f.mu.Lock()
	f.achievementCalls[appID]++
	fn := f.achievements
	f.mu.Unlock()

	if fn != nil {
		return fn(appID)
	}
	return &steam.PlayerStats{
		Success: true,
		Achievements: []steam.PlayerAchievement{
			{APIName: "ACH_1", Achieved: 1, UnlockTime: 1700000000},
			{APIName: "ACH_2", Achieved: 0},
		},
	}, nil
}

func (f *fakeSteamClient) FetchSchema(ctx context.Context, creds model.Credentials, appID int) ([]steam.SchemaAchievement, error) {
	f.mu.Lock()
	fn := f.schema
	f.mu.Unlock()

	if fn != nil {
		return fn(appID)
	}
	return []steam.SchemaAchievement{
		{Name: "ACH_1", DisplayName: "First Blood", Description: "Do the thing", Icon: "i1.jpg", IconGray: "g1.jpg"},
	}, nil
}

func (f *fakeSteamClient) FetchGlobalPercentages(ctx context.Context, appID int) ([]steam.GlobalPercent, error) {
	f.mu.Lock()
	fn := f.percentages
	f.mu.Unlock()

	if fn != nil {
		return fn(appID)
	}
	return []steam.GlobalPercent{{Name: "ACH_1", Percent: 52.5}}, nil
}

func (f *fakeSteamClient) callsFor(appID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.achievementCalls[appID]
}

// fakeGameRepo is an in-memory GameRepository safe for concurrent
// write-through from detail batches.
type fakeGameRepo struct {
	mu    sync.Mutex
	games map[int]model.Game

	upsertErr error
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[int]model.Game)}
}

func (r *fakeGameRepo) Upsert(ctx context.Context, g model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.games[g.AppID] = g
	return nil
}

func (r *fakeGameRepo) UpsertAll(ctx context.Context, games []model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, g := range games {
		r.games[g.AppID] = g
	}
	return nil
}

func (r *fakeGameRepo) GetAll(ctx context.Context) ([]model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeGameRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = make(map[int]model.Game)
	return nil
}

func (r *fakeGameRepo) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]interface{}{"total_games": len(r.games)}, nil
}

func (r *fakeGameRepo) Close() error { return nil }

func (r *fakeGameRepo) stored(appID int) (model.Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[appID]
	return g, ok
}

// fakeMetaRepo is an in-memory MetadataRepository.
type fakeMetaRepo struct {
	mu    sync.Mutex
	meta  model.LibraryMeta
	found bool
}

func (r *fakeMetaRepo) Load(ctx context.Context) (model.LibraryMeta, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.found {
		return model.NewLibraryMeta(), false, nil
	}
	return r.meta, true, nil
}

func (r *fakeMetaRepo) Save(ctx context.Context, meta model.LibraryMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta = meta
	r.found = true
	return nil
}

func (r *fakeMetaRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta = model.LibraryMeta{}
	r.found = false
	return nil
}

var testCreds = model.Credentials{SteamID: "76561198000000000", APIKey: "XYZ"}

// newTestService wires a service over fakes with configured credentials and
// no inter-batch delay.
func newTestService(client SteamClient, opts Options) (*LibraryService, *fakeGameRepo, *fakeMetaRepo) {
	games := newFakeGameRepo()
	meta := &fakeMetaRepo{}
	s := NewLibraryService(client, games, meta, nil, opts)
	_ = s.SetCredentials(context.Background(), testCreds)
	return s, games, meta
}
