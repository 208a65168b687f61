package model

import "encoding/json"

// Credentials is the Steam Web API credential pair.
type Credentials struct {
	SteamID string `json:"steam_id"`
	APIKey  string `json:"api_key"`
}

// Configured reports whether both halves of the pair are present.
func (c Credentials) Configured() bool {
	return c.SteamID != "" && c.APIKey != ""
}

// LibraryMeta is the small metadata document persisted separately from the
// game records: credentials, the ordered column list, the last-full-sync
// timestamp (milliseconds) and the last fetched profile snapshot. Game
// records churn on every sync; this document changes rarely.
type LibraryMeta struct {
	Credentials Credentials `json:"credentials"`
	Columns     []string    `json:"columns"`
	// LastSynced is milliseconds since epoch of the last completed full
	// refresh, 0 if never synced.
	LastSynced int64 `json:"last_synced"`
	// Profile is the last player-summary payload as returned by the remote
	// API, kept opaque.
	Profile json.RawMessage `json:"profile,omitempty"`
}

// NewLibraryMeta returns metadata for a fresh library.
func NewLibraryMeta() LibraryMeta {
	return LibraryMeta{Columns: DefaultColumns()}
}

// HasColumn reports membership in the column list.
func (m *LibraryMeta) HasColumn(name string) bool {
	for _, c := range m.Columns {
		if c == name {
			return true
		}
	}
	return false
}
