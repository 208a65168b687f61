package service

import (
	"testing"
	"time"

	"steamboard-api/internal/model"
	"steamboard-api/internal/steam"

	"github.com/stretchr/testify/assert"
)

func seedForScheduler(s *LibraryService, lastSynced int64, detail model.AchievementDetail) {
	s.mu.Lock()
	s.byID[440] = model.Game{AppID: 440, Name: "Team Fortress 2", Status: model.DefaultColumn, Detail: detail}
	s.order = []int{440}
	s.meta.LastSynced = lastSynced
	s.mu.Unlock()
}

func fullDetail() model.AchievementDetail {
	return model.AchievementDetail{
		Kind:         model.DetailFull,
		Achievements: []model.Achievement{{APIName: "ACH_1", Achieved: true}},
	}
}

func TestSchedulerSkipsFreshLibrary(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(steam.OwnedGame{AppID: 440}), Options{})
	synced := time.Now().UnixMilli()
	seedForScheduler(s, synced, fullDetail())

	sched := NewRefreshScheduler(s, SchedulerConfig{StaleAfter: 48 * time.Hour})
	sched.runCheck()

	assert.Equal(t, synced, s.Snapshot().LastSynced)
}

func TestSchedulerRefreshesStaleLibrary(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(steam.OwnedGame{AppID: 440}), Options{})
	synced := time.Now().Add(-72 * time.Hour).UnixMilli()
	seedForScheduler(s, synced, fullDetail())

	sched := NewRefreshScheduler(s, SchedulerConfig{StaleAfter: 48 * time.Hour})
	sched.runCheck()

	assert.Greater(t, s.Snapshot().LastSynced, synced)
}

func TestSchedulerRefreshesWhenDetailDataMissing(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(steam.OwnedGame{AppID: 440}), Options{})
	synced := time.Now().Add(-time.Minute).UnixMilli()
	seedForScheduler(s, synced, model.AchievementDetail{})

	sched := NewRefreshScheduler(s, SchedulerConfig{StaleAfter: 48 * time.Hour})
	sched.runCheck()

	assert.Greater(t, s.Snapshot().LastSynced, synced)
}

func TestSchedulerSkipsUnconfiguredOrEmptyLibrary(t *testing.T) {
	// no credentials
	s := NewLibraryService(newFakeSteamClient(), newFakeGameRepo(), &fakeMetaRepo{}, nil, Options{})
	seedForScheduler(s, 0, fullDetail())
	NewRefreshScheduler(s, SchedulerConfig{}).runCheck()
	assert.Zero(t, s.Snapshot().LastSynced)

	// no games at all: nothing to refresh before the first manual sync
	s2, _, _ := newTestService(newFakeSteamClient(), Options{})
	NewRefreshScheduler(s2, SchedulerConfig{}).runCheck()
	assert.Zero(t, s2.Snapshot().LastSynced)
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	s, _, _ := newTestService(newFakeSteamClient(), Options{})
	sched := NewRefreshScheduler(s, SchedulerConfig{CheckInterval: time.Hour})

	sched.Start()
	sched.Start() // second start is a no-op
	sched.Stop()
	sched.Stop() // second stop is a no-op
}
