package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"steamboard-api/internal/model"
	"steamboard-api/internal/service"
	"steamboard-api/pkg/apierror"
	"steamboard-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// GameHandler handles per-game HTTP requests.
type GameHandler struct {
	svc *service.LibraryService
}

// NewGameHandler creates a new game handler.
func NewGameHandler(svc *service.LibraryService) *GameHandler {
	return &GameHandler{svc: svc}
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func appIDParam(r *http.Request) (int, error) {
	raw := urlParam(r, "appid")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("appid must be a positive integer")
	}
	return id, nil
}

type patchGameRequest struct {
	Status *string `json:"status,omitempty"`
	Hidden *bool   `json:"hidden,omitempty"`
}

// Patch handles PATCH /api/v1/games/{appid} - status and visibility mutation.
func (h *GameHandler) Patch(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req patchGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if req.Status == nil && req.Hidden == nil {
		response.Error(w, apierror.BadRequest("nothing to change: provide status and/or hidden"))
		return
	}

	if req.Status != nil {
		if err := h.svc.SetStatus(r.Context(), appID, *req.Status); err != nil {
			response.Error(w, asAPIError(err))
			return
		}
	}
	if req.Hidden != nil {
		if err := h.svc.SetHidden(r.Context(), appID, *req.Hidden); err != nil {
			response.Error(w, asAPIError(err))
			return
		}
	}

	g, err := h.svc.Game(appID)
	if err != nil {
		response.Error(w, asAPIError(err))
		return
	}
	response.OK(w, gameView{Game: g, Completion: model.CompletionOf(g)})
}

// Refresh handles POST /api/v1/games/{appid}/refresh - manual detail fetch.
// A fetch already in flight for the same game makes this a no-op.
func (h *GameHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.svc.RefreshGame(r.Context(), appID); err != nil {
		if errors.Is(err, service.ErrDetailInFlight) {
			response.Accepted(w, map[string]interface{}{"started": false, "reason": err.Error()})
			return
		}
		response.Error(w, asAPIError(err))
		return
	}

	g, err := h.svc.Game(appID)
	if err != nil {
		response.Error(w, asAPIError(err))
		return
	}
	response.OK(w, gameView{Game: g, Completion: model.CompletionOf(g)})
}
