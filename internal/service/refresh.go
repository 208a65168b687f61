package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"steamboard-api/internal/model"
	"steamboard-api/internal/steam"
)

func profileCacheKey(steamID string) string {
	return "profile:" + steamID
}

func globalPctCacheKey(appID int) string {
	return fmt.Sprintf("global_pct:%d", appID)
}

// StartRefresh validates preconditions and kicks a full refresh in the
// background. A refresh already in progress makes this a no-op reported as
// ErrRefreshInProgress; missing credentials fail synchronously.
func (s *LibraryService) StartRefresh() error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInProgress
	}
	if !s.meta.Credentials.Configured() {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	s.refreshing = true
	s.lastError = ""
	s.mu.Unlock()

	go func() {
		if err := s.refresh(context.Background()); err != nil {
			log.Printf("[LibraryService] Refresh failed: %v", err)
		}
	}()
	return nil
}

// RefreshLibrary runs a full refresh synchronously. Used by the background
// scheduler and tests; the HTTP surface goes through StartRefresh.
func (s *LibraryService) RefreshLibrary(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInProgress
	}
	if !s.meta.Credentials.Configured() {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	s.refreshing = true
	s.lastError = ""
	s.mu.Unlock()

	return s.refresh(ctx)
}

// refresh is the full sync pass: catalog fetch, staleness merge, batched
// detail fetching, metadata timestamp update. The refreshing flag is already
// held by the caller.
func (s *LibraryService) refresh(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
		s.notify()
	}()

	s.notify()

	creds := s.Credentials()

	// Best-effort profile fetch, never joined. Its completion is unordered
	// relative to the rest of the pass.
	go s.fetchProfile(context.Background(), creds)

	fetched, err := s.client.FetchOwnedGames(ctx, creds)
	if err != nil {
		s.setLastError(err)
		return err
	}

	s.mu.Lock()
	merged := mergeCatalog(s.byID, fetched, s.meta.LastSynced)
	s.byID = make(map[int]model.Game, len(merged))
	s.order = s.order[:0]
	for _, g := range merged {
		s.byID[g.AppID] = g
		s.order = append(s.order, g.AppID)
	}
	s.mu.Unlock()

	s.persistGames(ctx, merged)
	s.notify()

	s.refreshStaleDetails(ctx)

	s.mu.Lock()
	s.meta.LastSynced = time.Now().UnixMilli()
	meta := s.meta
	s.mu.Unlock()

	s.persistMeta(ctx, meta)
	return nil
}

func (s *LibraryService) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// fetchProfile refreshes the cached player summary; failures are logged only.
func (s *LibraryService) fetchProfile(ctx context.Context, creds model.Credentials) {
	fetch := func() ([]byte, error) {
		return s.client.FetchPlayerSummary(ctx, creds)
	}

	var profile []byte
	var err error
	if s.cache != nil {
		profile, err = s.cache.GetOrSet(ctx, profileCacheKey(creds.SteamID), s.opts.CacheTTL, fetch)
	} else {
		profile, err = fetch()
	}
	if err != nil {
		log.Printf("[LibraryService] Failed to fetch user profile: %v", err)
		return
	}

	s.mu.Lock()
	s.meta.Profile = profile
	meta := s.meta
	s.mu.Unlock()

	s.persistMeta(ctx, meta)
	s.notify()
}

// mergeCatalog merges a freshly fetched catalog into the stored records,
// deciding per game whether detail data must be re-fetched.
//
// A game is stale when its last-played timestamp differs from the stored one
// or advanced past the last full sync. Games with no detail at all and no
// recorded needsUpdate are deliberately NOT forced into a retry: a game that
// permanently errored stays settled until it is played again.
//
// Games no longer present in the catalog are kept untouched; records only
// leave the store on a full wipe.
func mergeCatalog(existing map[int]model.Game, fetched []steam.OwnedGame, lastSyncedMs int64) []model.Game {
	// Catalog timestamps are seconds; LastSynced is milliseconds.
	lastSyncedSec := lastSyncedMs / 1000

	merged := make([]model.Game, 0, len(existing)+len(fetched))
	seen := make(map[int]bool, len(fetched))

	for _, rg := range fetched {
		seen[rg.AppID] = true

		g := model.Game{
			AppID:           rg.AppID,
			Name:            rg.Name,
			PlaytimeForever: rg.PlaytimeForever,
			LastPlayed:      rg.RtimeLastPlayed,
			IconURL:         rg.ImgIconURL,
			Status:          model.DefaultColumn,
		}

		prev, ok := existing[rg.AppID]
		if !ok {
			g.NeedsUpdate = true
			merged = append(merged, g)
			continue
		}

		// User-owned fields and previously fetched detail carry forward
		// verbatim; only remote-sourced fields refresh.
		g.Status = prev.Status
		g.Hidden = prev.Hidden
		g.Detail = prev.Detail

		playedSinceRefresh := rg.RtimeLastPlayed != prev.LastPlayed || rg.RtimeLastPlayed > lastSyncedSec
		if playedSinceRefresh {
			g.NeedsUpdate = true
		} else {
			g.NeedsUpdate = prev.NeedsUpdate
		}

		merged = append(merged, g)
	}

	var leftovers []int
	for id := range existing {
		if !seen[id] {
			leftovers = append(leftovers, id)
		}
	}
	sort.Ints(leftovers)
	for _, id := range leftovers {
		merged = append(merged, existing[id])
	}

	return merged
}

// refreshStaleDetails fetches detail for every needsUpdate, non-hidden game
// in fixed-size batches with a delay between batches. One rate-limit
// observation halts scheduling of further batches for this pass; the batch
// already in flight always completes.
func (s *LibraryService) refreshStaleDetails(ctx context.Context) {
	s.mu.Lock()
	var stale []int
	for _, id := range s.order {
		g := s.byID[id]
		if g.NeedsUpdate && !g.Hidden {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	if len(stale) == 0 {
		return
	}
	log.Printf("[LibraryService] Refreshing details for %d games in batches of %d", len(stale), s.opts.BatchSize)

	for start := 0; start < len(stale); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(stale) {
			end = len(stale)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		rateLimited := false

		for _, id := range stale[start:end] {
			wg.Add(1)
			go func(appID int) {
				defer wg.Done()
				if err := s.refreshGameDetails(ctx, appID); err != nil {
					if steam.IsRateLimited(err) {
						mu.Lock()
						rateLimited = true
						mu.Unlock()
					} else {
						log.Printf("[LibraryService] Detail fetch for %d failed: %v", appID, err)
					}
				}
			}(id)
		}
		wg.Wait()

		if rateLimited {
			log.Printf("[LibraryService] Rate limited, halting detail refresh for this pass")
			s.setLastError(ErrRateLimitedThisPass)
			return
		}

		if end < len(stale) && s.opts.BatchDelay > 0 {
			select {
			case <-time.After(s.opts.BatchDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// ErrRateLimitedThisPass surfaces the circuit breaker to the UI.
var ErrRateLimitedThisPass = steamRateLimitError{}

type steamRateLimitError struct{}

func (steamRateLimitError) Error() string {
	return "Steam rate limit reached, remaining games will refresh on the next sync"
}

// RefreshGame fetches detail for one game on demand. A second call for the
// same game while one is in flight is a no-op; different games may run
// concurrently.
func (s *LibraryService) RefreshGame(ctx context.Context, appID int) error {
	s.mu.Lock()
	if _, ok := s.byID[appID]; !ok {
		s.mu.Unlock()
		return ErrGameNotFound
	}
	if !s.meta.Credentials.Configured() {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	s.mu.Unlock()

	return s.refreshGameDetails(ctx, appID)
}

// refreshGameDetails runs the three detail sub-calls for one game, merges
// the responses, updates the record and writes it through to the store.
func (s *LibraryService) refreshGameDetails(ctx context.Context, appID int) error {
	s.mu.Lock()
	g, ok := s.byID[appID]
	if !ok {
		s.mu.Unlock()
		return ErrGameNotFound
	}
	if s.inFlight[appID] {
		s.mu.Unlock()
		return ErrDetailInFlight
	}
	s.inFlight[appID] = true
	g.LoadingDetails = true
	s.byID[appID] = g
	creds := s.meta.Credentials
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, appID)
		if cur, ok := s.byID[appID]; ok {
			cur.LoadingDetails = false
			s.byID[appID] = cur
		}
		s.mu.Unlock()
		s.notify()
	}()

	detail, needsUpdate, err := s.fetchDetails(ctx, creds, appID)
	if err != nil {
		// Rate limiting leaves the record untouched so a later pass
		// retries it.
		return err
	}

	s.mu.Lock()
	cur, ok := s.byID[appID]
	if !ok {
		s.mu.Unlock()
		return ErrGameNotFound
	}
	cur.Detail = detail
	cur.NeedsUpdate = needsUpdate
	s.byID[appID] = cur
	s.mu.Unlock()

	s.persistGame(ctx, cur)
	s.notify()
	return nil
}

// fetchDetails issues the three per-game endpoints concurrently and merges
// them into a unified achievement list. Rate limiting on any sub-call aborts
// the whole operation. A missing or malformed player-achievements payload is
// a terminal outcome: the record gets an error detail and no retry.
func (s *LibraryService) fetchDetails(ctx context.Context, creds model.Credentials, appID int) (model.AchievementDetail, bool, error) {
	var (
		wg        sync.WaitGroup
		stats     *steam.PlayerStats
		statsErr  error
		schema    []steam.SchemaAchievement
		schemaErr error
		percents  []steam.GlobalPercent
		pctErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		stats, statsErr = s.client.FetchPlayerAchievements(ctx, creds, appID)
	}()
	go func() {
		defer wg.Done()
		schema, schemaErr = s.client.FetchSchema(ctx, creds, appID)
	}()
	go func() {
		defer wg.Done()
		percents, pctErr = s.fetchGlobalPercentages(ctx, appID)
	}()
	wg.Wait()

	for _, err := range []error{statsErr, schemaErr, pctErr} {
		if steam.IsRateLimited(err) {
			return model.AchievementDetail{}, true, err
		}
	}

	if statsErr != nil {
		return model.AchievementDetail{Kind: model.DetailFailed, Error: statsErr.Error()}, false, nil
	}
	if stats == nil {
		return model.AchievementDetail{Kind: model.DetailFailed, Error: "Stats inaccessible"}, false, nil
	}
	if len(stats.Achievements) == 0 {
		msg := stats.Error
		if msg == "" {
			msg = "No achievements found"
		}
		return model.AchievementDetail{Kind: model.DetailFailed, Error: msg}, false, nil
	}

	// Schema and percentages are enrichment only; their individual failures
	// degrade to empty fallbacks.
	if schemaErr != nil {
		log.Printf("[LibraryService] Schema fetch for %d failed: %v", appID, schemaErr)
		schema = nil
	}
	if pctErr != nil {
		log.Printf("[LibraryService] Global percentages fetch for %d failed: %v", appID, pctErr)
		percents = nil
	}

	return model.AchievementDetail{
		Kind:         model.DetailFull,
		Achievements: mergeAchievements(stats.Achievements, schema, percents),
	}, false, nil
}

// fetchGlobalPercentages serves global unlock percentages through the cache;
// they change slowly and the endpoint needs no credentials.
func (s *LibraryService) fetchGlobalPercentages(ctx context.Context, appID int) ([]steam.GlobalPercent, error) {
	if s.cache == nil {
		return s.client.FetchGlobalPercentages(ctx, appID)
	}

	raw, err := s.cache.GetOrSet(ctx, globalPctCacheKey(appID), s.opts.CacheTTL, func() ([]byte, error) {
		percents, err := s.client.FetchGlobalPercentages(ctx, appID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(percents)
	})
	if err != nil {
		return nil, err
	}

	var percents []steam.GlobalPercent
	if err := json.Unmarshal(raw, &percents); err != nil {
		return nil, fmt.Errorf("failed to decode cached percentages: %w", err)
	}
	return percents, nil
}

// mergeAchievements joins the player unlock list with schema display
// metadata and global percentages by achievement api-name. Display name and
// description fall back from schema to the player payload to the api-name;
// missing percentages default to zero.
func mergeAchievements(player []steam.PlayerAchievement, schema []steam.SchemaAchievement, percents []steam.GlobalPercent) []model.Achievement {
	schemaByName := make(map[string]steam.SchemaAchievement, len(schema))
	for _, sa := range schema {
		schemaByName[sa.Name] = sa
	}
	pctByName := make(map[string]float64, len(percents))
	for _, gp := range percents {
		pctByName[gp.Name] = float64(gp.Percent)
	}

	out := make([]model.Achievement, 0, len(player))
	for _, pa := range player {
		a := model.Achievement{
			APIName:    pa.APIName,
			Achieved:   pa.Achieved == 1,
			UnlockTime: pa.UnlockTime,
		}

		sa, hasSchema := schemaByName[pa.APIName]
		switch {
		case hasSchema && sa.DisplayName != "":
			a.Name = sa.DisplayName
		case pa.Name != "":
			a.Name = pa.Name
		default:
			a.Name = pa.APIName
		}
		switch {
		case hasSchema && sa.Description != "":
			a.Description = sa.Description
		default:
			a.Description = pa.Description
		}
		if hasSchema {
			a.Icon = sa.Icon
			a.IconGray = sa.IconGray
		}
		a.GlobalPercent = pctByName[pa.APIName]

		out = append(out, a)
	}
	return out
}
