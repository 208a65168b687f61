package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"steamboard-api/internal/model"
)

// SchedulerConfig holds configuration for the auto-refresh scheduler.
type SchedulerConfig struct {
	// StaleAfter is how old the last full sync may get before a refresh is
	// triggered automatically.
	StaleAfter time.Duration

	// CheckInterval is how often staleness is checked.
	CheckInterval time.Duration
}

// RefreshScheduler triggers a library refresh when the last sync is older
// than the staleness threshold or no detail data exists yet.
type RefreshScheduler struct {
	svc       *LibraryService
	config    SchedulerConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewRefreshScheduler creates a new auto-refresh scheduler.
func NewRefreshScheduler(svc *LibraryService, config SchedulerConfig) *RefreshScheduler {
	if config.StaleAfter == 0 {
		config.StaleAfter = 48 * time.Hour
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = time.Hour
	}

	return &RefreshScheduler{
		svc:    svc,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CheckInterval)
	s.mu.Unlock()

	log.Printf("[RefreshScheduler] Started - Interval: %v, StaleAfter: %v",
		s.config.CheckInterval, s.config.StaleAfter)

	// Run an initial check shortly after startup
	go func() {
		select {
		case <-time.After(10 * time.Second):
			s.runCheck()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *RefreshScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCheck()
		case <-s.stopCh:
			log.Printf("[RefreshScheduler] Stopped")
			return
		}
	}
}

// runCheck refreshes the library if it is stale or has no detail data yet.
func (s *RefreshScheduler) runCheck() {
	snap := s.svc.Snapshot()

	if !s.svc.Credentials().Configured() || len(snap.Games) == 0 {
		return
	}

	age := time.Since(time.UnixMilli(snap.LastSynced))
	if snap.LastSynced != 0 && age < s.config.StaleAfter && hasDetailData(snap.Games) {
		return
	}

	log.Printf("[RefreshScheduler] Library stale (age %v), refreshing", age.Truncate(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.svc.RefreshLibrary(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
		log.Printf("[RefreshScheduler] Refresh failed: %v", err)
	}
}

func hasDetailData(games []model.Game) bool {
	for _, g := range games {
		if g.Detail.Kind == model.DetailFull && len(g.Detail.Achievements) > 0 {
			return true
		}
	}
	return false
}

// Stop stops the scheduler.
func (s *RefreshScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
