package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/service"
)

// PlatformHandler serves the per-user platform tallies.
type PlatformHandler struct {
	platforms *service.PlatformService
	logger    *slog.Logger
}

func NewPlatformHandler(platforms *service.PlatformService, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{platforms: platforms, logger: logger}
}

// HandleList returns the requester's tallies, optionally filtered by ?q.
//
// HTTP: GET /api/platforms?q=station
func (h *PlatformHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.platforms.Search(r.Context(), requester(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleIncrement counts one more game on the platform. Clients call it
// after a successful item create.
//
// HTTP: POST /api/platforms/{name}/increment
func (h *PlatformHandler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeError(w, err)
		return
	}

	tally, err := h.platforms.Increment(r.Context(), name, requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

// HandleGet returns one tally.
//
// HTTP: GET /api/platforms/{id}
func (h *PlatformHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tally, err := h.platforms.Get(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

// HandleUpdate renames a tally or corrects its count.
//
// HTTP: PUT /api/platforms/{id}  {"name": "...", "count": 3}
func (h *PlatformHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.PlatformPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	tally, err := h.platforms.Update(r.Context(), chi.URLParam(r, "id"), requester(r), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

// HandleDelete removes a tally.
//
// HTTP: DELETE /api/platforms/{id}
func (h *PlatformHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.platforms.Delete(r.Context(), chi.URLParam(r, "id"), requester(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
