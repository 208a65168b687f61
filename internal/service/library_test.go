package service

import (
	"context"
	"testing"
	"time"

	"steamboard-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLibraryService_LoadsPersistedState(t *testing.T) {
	games := newFakeGameRepo()
	require.NoError(t, games.Upsert(context.Background(), model.Game{AppID: 620, Name: "Portal 2", Status: "Completed"}))
	require.NoError(t, games.Upsert(context.Background(), model.Game{AppID: 440, Name: "Team Fortress 2", Status: model.DefaultColumn}))

	meta := &fakeMetaRepo{}
	require.NoError(t, meta.Save(context.Background(), model.LibraryMeta{
		Credentials: testCreds,
		Columns:     []string{model.DefaultColumn, "Completed"},
		LastSynced:  1710000000000,
	}))

	s := NewLibraryService(newFakeSteamClient(), games, meta, nil, Options{})

	snap := s.Snapshot()
	require.Len(t, snap.Games, 2)
	assert.Equal(t, 440, snap.Games[0].AppID) // ordered by app id after a load
	assert.Equal(t, 620, snap.Games[1].AppID)
	assert.Equal(t, []string{model.DefaultColumn, "Completed"}, snap.Columns)
	assert.Equal(t, int64(1710000000000), snap.LastSynced)
	assert.Equal(t, testCreds, s.Credentials())
}

func TestNewLibraryService_RepairsStrayColumns(t *testing.T) {
	games := newFakeGameRepo()
	require.NoError(t, games.Upsert(context.Background(), model.Game{AppID: 440, Status: "Gone Column"}))

	meta := &fakeMetaRepo{}
	require.NoError(t, meta.Save(context.Background(), model.LibraryMeta{
		Columns: []string{"Playing"}, // default lane missing too
	}))

	s := NewLibraryService(newFakeSteamClient(), games, meta, nil, Options{})

	snap := s.Snapshot()
	assert.Equal(t, []string{model.DefaultColumn, "Playing"}, snap.Columns)
	require.Len(t, snap.Games, 1)
	assert.Equal(t, model.DefaultColumn, snap.Games[0].Status)
}

func TestSetStatus(t *testing.T) {
	s, games, _ := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[440] = model.Game{AppID: 440, Status: model.DefaultColumn}
	s.order = []int{440}
	s.mu.Unlock()

	require.NoError(t, s.SetStatus(context.Background(), 440, "Playing"))
	g, err := s.Game(440)
	require.NoError(t, err)
	assert.Equal(t, "Playing", g.Status)

	stored, ok := games.stored(440)
	require.True(t, ok)
	assert.Equal(t, "Playing", stored.Status)

	assert.ErrorIs(t, s.SetStatus(context.Background(), 440, "No Such Column"), ErrColumnNotFound)
	assert.ErrorIs(t, s.SetStatus(context.Background(), 999, "Playing"), ErrGameNotFound)
}

func TestSetHidden(t *testing.T) {
	s, games, _ := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[440] = model.Game{AppID: 440, Status: model.DefaultColumn}
	s.order = []int{440}
	s.mu.Unlock()

	require.NoError(t, s.SetHidden(context.Background(), 440, true))
	g, err := s.Game(440)
	require.NoError(t, err)
	assert.True(t, g.Hidden)

	stored, ok := games.stored(440)
	require.True(t, ok)
	assert.True(t, stored.Hidden)

	assert.ErrorIs(t, s.SetHidden(context.Background(), 999, true), ErrGameNotFound)
}

func TestAddColumn(t *testing.T) {
	s, _, metaRepo := newTestService(newFakeSteamClient(), Options{})

	require.NoError(t, s.AddColumn(context.Background(), "RPGs"))
	assert.Contains(t, s.Snapshot().Columns, "RPGs")
	assert.ErrorIs(t, s.AddColumn(context.Background(), "RPGs"), ErrColumnExists)
	assert.Error(t, s.AddColumn(context.Background(), ""))

	metaRepo.mu.Lock()
	defer metaRepo.mu.Unlock()
	assert.Contains(t, metaRepo.meta.Columns, "RPGs")
}

func TestRemoveColumn_ReassignsGames(t *testing.T) {
	s, games, _ := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[1] = model.Game{AppID: 1, Status: "Playing"}
	s.byID[2] = model.Game{AppID: 2, Status: "Playing"}
	s.byID[3] = model.Game{AppID: 3, Status: "Completed"}
	s.order = []int{1, 2, 3}
	s.mu.Unlock()

	require.NoError(t, s.RemoveColumn(context.Background(), "Playing"))

	snap := s.Snapshot()
	assert.NotContains(t, snap.Columns, "Playing")
	for _, g := range snap.Games {
		assert.NotEqual(t, "Playing", g.Status, "game %d", g.AppID)
	}
	g1, err := s.Game(1)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultColumn, g1.Status)
	g3, err := s.Game(3)
	require.NoError(t, err)
	assert.Equal(t, "Completed", g3.Status)

	// reassignment written through
	stored, ok := games.stored(1)
	require.True(t, ok)
	assert.Equal(t, model.DefaultColumn, stored.Status)

	assert.ErrorIs(t, s.RemoveColumn(context.Background(), "Playing"), ErrColumnNotFound)
}

func TestRemoveColumn_FallbackWhenFirstColumnRemoved(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[1] = model.Game{AppID: 1, Status: model.DefaultColumn}
	s.order = []int{1}
	s.mu.Unlock()

	// columns are [Backlog, Playing, Completed]; removing the first sends
	// its games to the next remaining column
	require.NoError(t, s.RemoveColumn(context.Background(), model.DefaultColumn))

	g, err := s.Game(1)
	require.NoError(t, err)
	assert.Equal(t, "Playing", g.Status)
}

func TestSetCredentials(t *testing.T) {
	s, _, metaRepo := newTestService(newFakeSteamClient(), Options{})

	creds := model.Credentials{SteamID: "76561198111111111", APIKey: "NEW"}
	require.NoError(t, s.SetCredentials(context.Background(), creds))
	assert.Equal(t, creds, s.Credentials())

	metaRepo.mu.Lock()
	defer metaRepo.mu.Unlock()
	assert.Equal(t, creds, metaRepo.meta.Credentials)
}

func TestClearAll(t *testing.T) {
	s, games, metaRepo := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[440] = model.Game{AppID: 440, Status: model.DefaultColumn}
	s.order = []int{440}
	s.meta.LastSynced = 1710000000000
	s.mu.Unlock()

	require.NoError(t, s.ClearAll(context.Background()))

	snap := s.Snapshot()
	assert.Empty(t, snap.Games)
	assert.Equal(t, model.DefaultColumns(), snap.Columns)
	assert.Zero(t, snap.LastSynced)
	assert.False(t, s.Credentials().Configured())

	stored, err := games.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
	metaRepo.mu.Lock()
	defer metaRepo.mu.Unlock()
	assert.False(t, metaRepo.found)
}

func TestSubscribeReceivesChangeTicks(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(), Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.AddColumn(context.Background(), "RPGs"))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change tick after a committed mutation")
	}
}

func TestPersistFailuresDoNotPropagate(t *testing.T) {
	s, games, _ := newTestService(newFakeSteamClient(), Options{})
	s.mu.Lock()
	s.byID[440] = model.Game{AppID: 440, Status: model.DefaultColumn}
	s.order = []int{440}
	s.mu.Unlock()

	games.mu.Lock()
	games.upsertErr = assert.AnError
	games.mu.Unlock()

	// durable write fails, in-memory state stays authoritative
	require.NoError(t, s.SetStatus(context.Background(), 440, "Playing"))
	g, err := s.Game(440)
	require.NoError(t, err)
	assert.Equal(t, "Playing", g.Status)
}
