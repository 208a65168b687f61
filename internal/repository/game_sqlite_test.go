package repository

import (
	"context"
	"database/sql"
	"testing"

	"steamboard-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, createSQLiteTables(db))
	return db
}

func sampleGame() model.Game {
	return model.Game{
		AppID:           440,
		Name:            "Team Fortress 2",
		PlaytimeForever: 1200,
		LastPlayed:      1700000000,
		IconURL:         "e3f595a92552da3d664ad00277fad2107345f743",
		Status:          "Playing",
		Hidden:          false,
		NeedsUpdate:     true,
		Detail: model.AchievementDetail{
			Kind: model.DetailFull,
			Achievements: []model.Achievement{
				{APIName: "TF_SCOUT_KILL", Name: "Batter Up", Achieved: true, UnlockTime: 1690000000, GlobalPercent: 42.5},
				{APIName: "TF_MEDIC_HEAL", Name: "Grand Rounds", Achieved: false},
			},
		},
	}
}

func TestGameRoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	want := sampleGame()
	want.LoadingDetails = true // transient, must not survive a reload
	require.NoError(t, r.Upsert(ctx, want))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want.LoadingDetails = false
	assert.Equal(t, want, got[0])
}

func TestGameUpsertIsIdempotentOnAppID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	g := sampleGame()
	require.NoError(t, r.Upsert(ctx, g))

	g.Status = "Completed"
	g.NeedsUpdate = false
	require.NoError(t, r.Upsert(ctx, g))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Completed", got[0].Status)
	assert.False(t, got[0].NeedsUpdate)
}

func TestUpsertAllTransactional(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	games := []model.Game{
		{AppID: 1, Name: "One", Status: "Backlog"},
		{AppID: 2, Name: "Two", Status: "Backlog"},
		{AppID: 3, Name: "Three", Status: "Backlog"},
	}
	require.NoError(t, r.UpsertAll(ctx, games))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// empty batch is a no-op
	require.NoError(t, r.UpsertAll(ctx, nil))
}

func TestGameClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleGame()))
	require.NoError(t, r.Clear(ctx))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGameStats(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	require.NoError(t, r.UpsertAll(ctx, []model.Game{
		{AppID: 1, Name: "One", Status: "Backlog", NeedsUpdate: true},
		{AppID: 2, Name: "Two", Status: "Backlog"},
	}))

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_games"])
	assert.Equal(t, int64(1), stats["pending_detail"])
}

func TestGameUndecodableDetailDegrades(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteGameRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO games (appid, name, detail) VALUES (7, 'Broken', 'not json')`)
	require.NoError(t, err)

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.DetailAbsent, got[0].Detail.Kind)
}

func TestMetadataLoadMissing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteMetadataRepository(db)

	meta, found, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, model.DefaultColumns(), meta.Columns)
}

func TestMetadataRoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteMetadataRepository(db)
	ctx := context.Background()

	want := model.LibraryMeta{
		Credentials: model.Credentials{SteamID: "7656119", APIKey: "secret"},
		Columns:     []string{"Backlog", "Playing", "Done"},
		LastSynced:  1700000000000,
		Profile:     []byte(`{"personaname":"gordon"}`),
	}
	require.NoError(t, r.Save(ctx, want))

	got, found, err := r.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	// save again overwrites rather than duplicating
	want.LastSynced = 1700000001000
	require.NoError(t, r.Save(ctx, want))
	got, _, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000001000), got.LastSynced)
}

func TestMetadataForwardCompatibleRead(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteMetadataRepository(db)
	ctx := context.Background()

	// an older blob missing most fields still loads with defaults
	_, err := db.Exec(`INSERT INTO library_meta (id, meta) VALUES (1, '{"last_synced": 123}')`)
	require.NoError(t, err)

	meta, found, err := r.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(123), meta.LastSynced)
	assert.Equal(t, model.DefaultColumns(), meta.Columns)
	assert.Empty(t, meta.Credentials.APIKey)
}

func TestMetadataClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteMetadataRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, model.NewLibraryMeta()))
	require.NoError(t, r.Clear(ctx))

	_, found, err := r.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
