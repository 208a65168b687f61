package model

// DefaultColumn is the board lane every new game lands in and the fallback
// whenever a column assignment can no longer be resolved.
const DefaultColumn = "Backlog"

// DefaultColumns is the column list for a fresh library.
func DefaultColumns() []string {
	return []string{DefaultColumn, "Playing", "Completed"}
}

// DetailKind discriminates the achievement-detail variants carried by a game.
type DetailKind string

const (
	// DetailAbsent means detail data was never fetched for the game.
	DetailAbsent DetailKind = ""
	// DetailLegacy is the old {achieved,total} counter shape, kept verbatim
	// from libraries synced before per-achievement detail existed.
	DetailLegacy DetailKind = "legacy"
	// DetailFull is the enriched per-achievement list.
	DetailFull DetailKind = "full"
	// DetailFailed marks a terminal fetch failure with a user-facing message.
	DetailFailed DetailKind = "error"
)

// Achievement is one merged achievement row: player unlock state joined with
// schema display metadata and the global unlock percentage.
type Achievement struct {
	APIName       string  `json:"apiname"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Achieved      bool    `json:"achieved"`
	UnlockTime    int64   `json:"unlocktime"`
	Icon          string  `json:"icon,omitempty"`
	IconGray      string  `json:"icongray,omitempty"`
	GlobalPercent float64 `json:"global_percent"`
}

// LegacyStats is the pre-detail counter shape.
type LegacyStats struct {
	Achieved int `json:"achieved"`
	Total    int `json:"total"`
}

// AchievementDetail is a tagged variant with four cases, discriminated by Kind.
// Exactly one of Legacy, Achievements or Error is meaningful for a given Kind.
type AchievementDetail struct {
	Kind         DetailKind    `json:"kind"`
	Legacy       *LegacyStats  `json:"legacy,omitempty"`
	Achievements []Achievement `json:"achievements,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Game is one library entry on the board.
type Game struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	// LastPlayed is seconds since epoch, as reported by the remote catalog.
	// It is the source of truth for staleness decisions.
	LastPlayed int64  `json:"rtime_last_played"`
	IconURL    string `json:"img_icon_url,omitempty"`

	// User-owned fields, never overwritten by a sync.
	Status string `json:"status"`
	Hidden bool   `json:"hidden"`

	Detail AchievementDetail `json:"detail"`

	// NeedsUpdate is a persisted hint that the detail data is stale.
	NeedsUpdate bool `json:"needs_update"`
	// LoadingDetails is transient and never persisted; it is always false
	// after a reload.
	LoadingDetails bool `json:"loading_details,omitempty"`
}

// Completion is the normalized achievement summary for a game.
type Completion struct {
	Total    int    `json:"total"`
	Achieved int    `json:"achieved"`
	Error    string `json:"error,omitempty"`
}

// CompletionOf projects a game's achievement detail into a normalized
// {total, achieved, error} view. Full detail takes precedence over legacy
// counters; an error marker yields zero counts plus the message; absent
// detail yields all zeroes.
func CompletionOf(g Game) Completion {
	switch g.Detail.Kind {
	case DetailFull:
		achieved := 0
		for _, a := range g.Detail.Achievements {
			if a.Achieved {
				achieved++
			}
		}
		return Completion{Total: len(g.Detail.Achievements), Achieved: achieved}
	case DetailLegacy:
		if g.Detail.Legacy == nil {
			return Completion{}
		}
		return Completion{Total: g.Detail.Legacy.Total, Achieved: g.Detail.Legacy.Achieved}
	case DetailFailed:
		return Completion{Error: g.Detail.Error}
	case DetailAbsent:
		return Completion{}
	default:
		return Completion{}
	}
}
