package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"steamboard-api/internal/model"
	"steamboard-api/internal/service"
	"steamboard-api/pkg/apierror"
	"steamboard-api/pkg/response"
)

// LibraryHandler handles board-level HTTP requests.
type LibraryHandler struct {
	svc *service.LibraryService
}

// NewLibraryHandler creates a new library handler.
func NewLibraryHandler(svc *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// gameView is a game record plus its projected completion summary.
type gameView struct {
	model.Game
	Completion model.Completion `json:"completion"`
}

type libraryView struct {
	Games      []gameView      `json:"games"`
	Columns    []string        `json:"columns"`
	LastSynced int64           `json:"last_synced"`
	Refreshing bool            `json:"refreshing"`
	LastError  string          `json:"last_error,omitempty"`
	Profile    json.RawMessage `json:"profile,omitempty"`
}

func viewOf(snap service.Snapshot) libraryView {
	games := make([]gameView, 0, len(snap.Games))
	for _, g := range snap.Games {
		games = append(games, gameView{Game: g, Completion: model.CompletionOf(g)})
	}
	return libraryView{
		Games:      games,
		Columns:    snap.Columns,
		LastSynced: snap.LastSynced,
		Refreshing: snap.Refreshing,
		LastError:  snap.LastError,
		Profile:    snap.Profile,
	}
}

// GetLibrary handles GET /api/v1/library
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	response.OK(w, viewOf(h.svc.Snapshot()))
}

// Refresh handles POST /api/v1/library/refresh
// A refresh already in progress makes this a no-op.
func (h *LibraryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartRefresh(); err != nil {
		if errors.Is(err, service.ErrRefreshInProgress) {
			response.Accepted(w, map[string]interface{}{"started": false, "reason": err.Error()})
			return
		}
		response.Error(w, asAPIError(err))
		return
	}
	response.Accepted(w, map[string]interface{}{"started": true})
}

// Import handles POST /api/v1/library/import?mode=&only_unassigned=
func (h *LibraryHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode := model.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = model.ImportAdditive
	}
	onlyUnassigned := r.URL.Query().Get("only_unassigned") == "true"

	var doc model.ImportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	report, err := h.svc.ImportCollections(r.Context(), doc, mode, onlyUnassigned)
	if err != nil {
		response.Error(w, asAPIError(err))
		return
	}

	response.OK(w, report)
}

// Clear handles DELETE /api/v1/library
func (h *LibraryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context()); err != nil {
		response.Error(w, asAPIError(err))
		return
	}
	response.NoContent(w)
}

type columnRequest struct {
	Name string `json:"name"`
}

// AddColumn handles POST /api/v1/columns
func (h *LibraryHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		response.Error(w, apierror.BadRequest("column name is required"))
		return
	}
	defer r.Body.Close()

	if err := h.svc.AddColumn(r.Context(), req.Name); err != nil {
		response.Error(w, asAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{"columns": h.svc.Snapshot().Columns})
}

// RemoveColumn handles DELETE /api/v1/columns/{name}
func (h *LibraryHandler) RemoveColumn(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if name == "" {
		response.Error(w, apierror.BadRequest("column name is required"))
		return
	}

	if err := h.svc.RemoveColumn(r.Context(), name); err != nil {
		response.Error(w, asAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{"columns": h.svc.Snapshot().Columns})
}

// Events handles GET /api/v1/library/events - an SSE stream emitting one
// tick per committed library mutation, for UI refresh.
func (h *LibraryHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, apierror.InternalError("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticks, cancel := h.svc.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticks:
			if _, err := w.Write([]byte("event: change\ndata: {}\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
