package handler

import (
	"net/http"

	"steamboard-api/internal/repository"
	"steamboard-api/pkg/response"
)

// AdminHandler exposes store statistics for the admin surface.
type AdminHandler struct {
	games     repository.GameRepository
	storeType string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(games repository.GameRepository, storeType string) *AdminHandler {
	return &AdminHandler{games: games, storeType: storeType}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.games.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	stats["store_type"] = h.storeType

	response.OK(w, stats)
}
