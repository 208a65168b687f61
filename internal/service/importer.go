package service

import (
	"context"
	"errors"
	"log"

	"steamboard-api/internal/model"
)

// ErrInvalidImport rejects a grouping document before any mutation happens.
var ErrInvalidImport = errors.New("import document must contain a collections list of {name, game_ids} groups")

// ImportCollections bulk-reassigns games into board columns from an
// externally supplied grouping document. Additive mode only creates columns
// and moves listed games; replace mode rebuilds the column list and resets
// unmapped games to the default lane. Validation runs before any mutation;
// both modes end with a single bulk persistence.
func (s *LibraryService) ImportCollections(ctx context.Context, doc model.ImportDocument, mode model.ImportMode, onlyUnassigned bool) (model.ImportReport, error) {
	if err := validateImport(doc, mode); err != nil {
		return model.ImportReport{}, err
	}

	s.mu.Lock()
	var report model.ImportReport
	switch mode {
	case model.ImportAdditive:
		report = s.importAdditive(doc, onlyUnassigned)
	case model.ImportReplace:
		report = s.importReplace(doc)
	}

	games := make([]model.Game, 0, len(s.byID))
	for _, id := range s.order {
		games = append(games, s.byID[id])
	}
	meta := s.meta
	s.mu.Unlock()

	s.persistGames(ctx, games)
	s.persistMeta(ctx, meta)
	s.notify()

	log.Printf("[LibraryService] Import (%s): +%d/-%d columns, %d moved, %d reset, %d not found",
		mode, len(report.ColumnsCreated), len(report.ColumnsRemoved), report.GamesMoved, report.GamesReset, report.GamesNotFound)
	return report, nil
}

func validateImport(doc model.ImportDocument, mode model.ImportMode) error {
	if mode != model.ImportAdditive && mode != model.ImportReplace {
		return ErrInvalidImport
	}
	if doc.Collections == nil {
		return ErrInvalidImport
	}
	for _, col := range doc.Collections {
		if col.Name == "" || col.GameIDs == nil {
			return ErrInvalidImport
		}
	}
	return nil
}

// importAdditive creates missing columns and moves listed games. Caller
// holds the state lock.
func (s *LibraryService) importAdditive(doc model.ImportDocument, onlyUnassigned bool) model.ImportReport {
	report := model.ImportReport{ColumnsCreated: []string{}, ColumnsRemoved: []string{}}

	for _, col := range doc.Collections {
		if !s.meta.HasColumn(col.Name) {
			s.meta.Columns = append(s.meta.Columns, col.Name)
			report.ColumnsCreated = append(report.ColumnsCreated, col.Name)
		}

		for _, id := range col.GameIDs {
			g, ok := s.byID[id]
			if !ok {
				report.GamesNotFound++
				continue
			}
			if onlyUnassigned && g.Status != model.DefaultColumn {
				continue
			}
			if g.Status == col.Name {
				continue
			}
			g.Status = col.Name
			s.byID[id] = g
			report.GamesMoved++
		}
	}

	return report
}

// importReplace rebuilds the column list as {default} ∪ {group names} in
// first-seen order and reassigns every game from the id→column map, later
// groups overriding earlier ones. Unmapped games reset to the default lane.
// Caller holds the state lock.
func (s *LibraryService) importReplace(doc model.ImportDocument) model.ImportReport {
	report := model.ImportReport{ColumnsCreated: []string{}, ColumnsRemoved: []string{}}

	newColumns := []string{model.DefaultColumn}
	inNew := map[string]bool{model.DefaultColumn: true}
	target := make(map[int]string)

	for _, col := range doc.Collections {
		if !inNew[col.Name] {
			newColumns = append(newColumns, col.Name)
			inNew[col.Name] = true
		}
		for _, id := range col.GameIDs {
			// last write wins on identifier collision
			target[id] = col.Name
		}
	}

	for _, old := range s.meta.Columns {
		if !inNew[old] {
			report.ColumnsRemoved = append(report.ColumnsRemoved, old)
		}
	}
	wasColumn := make(map[string]bool, len(s.meta.Columns))
	for _, old := range s.meta.Columns {
		wasColumn[old] = true
	}
	for _, col := range newColumns {
		if !wasColumn[col] {
			report.ColumnsCreated = append(report.ColumnsCreated, col)
		}
	}
	s.meta.Columns = newColumns

	for id := range target {
		if _, ok := s.byID[id]; !ok {
			report.GamesNotFound++
		}
	}

	for id, g := range s.byID {
		if col, ok := target[id]; ok {
			if g.Status != col {
				report.GamesMoved++
			}
			g.Status = col
		} else {
			g.Status = model.DefaultColumn
			report.GamesReset++
		}
		s.byID[id] = g
	}

	return report
}
