package steam

import "encoding/json"

// OwnedGame is one entry of the GetOwnedGames response.
type OwnedGame struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	RtimeLastPlayed int64  `json:"rtime_last_played"`
	ImgIconURL      string `json:"img_icon_url"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []OwnedGame `json:"games"`
	} `json:"response"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []json.RawMessage `json:"players"`
	} `json:"response"`
}

// PlayerAchievement is one entry of the GetPlayerAchievements response.
type PlayerAchievement struct {
	APIName     string `json:"apiname"`
	Achieved    int    `json:"achieved"`
	UnlockTime  int64  `json:"unlocktime"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PlayerStats is the playerstats block of the GetPlayerAchievements response.
type PlayerStats struct {
	SteamID      string              `json:"steamID"`
	GameName     string              `json:"gameName"`
	Achievements []PlayerAchievement `json:"achievements"`
	Success      bool                `json:"success"`
	Error        string              `json:"error"`
}

type playerAchievementsResponse struct {
	PlayerStats *PlayerStats `json:"playerstats"`
}

// SchemaAchievement is one entry of the GetSchemaForGame achievement list.
type SchemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconGray    string `json:"icongray"`
	Hidden      int    `json:"hidden"`
}

type schemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []SchemaAchievement `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// GlobalPercent is one entry of GetGlobalAchievementPercentagesForApp.
// Percent arrives as either a JSON number or a quoted string depending on
// the endpoint version, so it gets a tolerant decoder.
type GlobalPercent struct {
	Name    string      `json:"name"`
	Percent jsonPercent `json:"percent"`
}

type globalPercentagesResponse struct {
	AchievementPercentages struct {
		Achievements []GlobalPercent `json:"achievements"`
	} `json:"achievementpercentages"`
}

type jsonPercent float64

func (p *jsonPercent) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var f float64
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			// Unparseable string percentages are treated as zero.
			*p = 0
			return nil
		}
		*p = jsonPercent(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = jsonPercent(f)
	return nil
}
