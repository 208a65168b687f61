package model

// ImportMode selects how a grouping document is applied to the board.
type ImportMode string

const (
	// ImportAdditive creates missing columns and moves listed games without
	// touching anything else.
	ImportAdditive ImportMode = "additive"
	// ImportReplace rebuilds the column list from the document and
	// reassigns every game, resetting unmapped ones to the default column.
	ImportReplace ImportMode = "replace"
)

// Collection is one named group of games in an import document.
type Collection struct {
	Name    string `json:"name"`
	GameIDs []int  `json:"game_ids"`
}

// ImportDocument is the externally supplied grouping document.
type ImportDocument struct {
	Collections []Collection `json:"collections"`
}

// ImportReport summarizes what an import changed.
type ImportReport struct {
	ColumnsCreated []string `json:"columns_created"`
	ColumnsRemoved []string `json:"columns_removed"`
	GamesMoved     int      `json:"games_moved"`
	GamesReset     int      `json:"games_reset"`
	GamesNotFound  int      `json:"games_not_found"`
}
