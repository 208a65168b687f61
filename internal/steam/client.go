package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"steamboard-api/internal/model"
)

// Client talks to the Steam Web API read-only endpoints used by the sync
// core: owned games, player summaries and the three per-game achievement
// endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Steam API client against the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// get issues the request and classifies transport and status failures.
// A nil error means status 2xx and body contains the full payload.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp.StatusCode)
	}

	return body, nil
}

// FetchOwnedGames retrieves the full owned-games catalog for the account.
func (c *Client) FetchOwnedGames(ctx context.Context, creds model.Credentials) ([]OwnedGame, error) {
	q := url.Values{}
	q.Set("key", creds.APIKey)
	q.Set("steamid", creds.SteamID)
	q.Set("format", "json")
	q.Set("include_appinfo", "1")
	q.Set("include_played_free_games", "1")

	body, err := c.get(ctx, "/IPlayerService/GetOwnedGames/v0001/", q)
	if err != nil {
		return nil, err
	}

	var parsed ownedGamesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode owned games response: %w", err)
	}

	return parsed.Response.Games, nil
}

// FetchPlayerSummary retrieves the profile snapshot for the account.
// The payload is returned opaque; callers persist it as-is.
func (c *Client) FetchPlayerSummary(ctx context.Context, creds model.Credentials) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("key", creds.APIKey)
	q.Set("steamids", creds.SteamID)

	body, err := c.get(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", q)
	if err != nil {
		return nil, err
	}

	var parsed playerSummariesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode player summaries response: %w", err)
	}
	if len(parsed.Response.Players) == 0 {
		return nil, fmt.Errorf("player summaries response contained no players")
	}

	return parsed.Response.Players[0], nil
}

// FetchPlayerAchievements retrieves per-achievement unlock state for one game.
// A nil PlayerStats with nil error means the payload had no playerstats block.
func (c *Client) FetchPlayerAchievements(ctx context.Context, creds model.Credentials, appID int) (*PlayerStats, error) {
	q := url.Values{}
	q.Set("key", creds.APIKey)
	q.Set("steamid", creds.SteamID)
	q.Set("appid", strconv.Itoa(appID))

	body, err := c.get(ctx, "/ISteamUserStats/GetPlayerAchievements/v0001/", q)
	if err != nil {
		return nil, err
	}

	var parsed playerAchievementsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode player achievements response: %w", err)
	}

	return parsed.PlayerStats, nil
}

// FetchSchema retrieves achievement display metadata for one game.
// Failure to decode yields an empty list rather than an error: schema is a
// fallback source and apps without stats return an empty object.
func (c *Client) FetchSchema(ctx context.Context, creds model.Credentials, appID int) ([]SchemaAchievement, error) {
	q := url.Values{}
	q.Set("key", creds.APIKey)
	q.Set("appid", strconv.Itoa(appID))

	body, err := c.get(ctx, "/ISteamUserStats/GetSchemaForGame/v0002/", q)
	if err != nil {
		return nil, err
	}

	var parsed schemaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil
	}

	return parsed.Game.AvailableGameStats.Achievements, nil
}

// FetchGlobalPercentages retrieves global unlock percentages for one game.
// This endpoint takes no key; it is public.
func (c *Client) FetchGlobalPercentages(ctx context.Context, appID int) ([]GlobalPercent, error) {
	q := url.Values{}
	q.Set("gameid", strconv.Itoa(appID))
	q.Set("format", "json")

	body, err := c.get(ctx, "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v0002/", q)
	if err != nil {
		return nil, err
	}

	var parsed globalPercentagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil
	}

	return parsed.AchievementPercentages.Achievements, nil
}
