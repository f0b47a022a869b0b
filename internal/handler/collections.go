package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/service"
)

// CollectionHandler serves collections.
//
// AUTH:
//   - /public and /search are open to everyone
//   - GET /{id} uses OptionalAuth: anonymous callers see public collections
//   - everything else requires a token
type CollectionHandler struct {
	collections    *service.CollectionService
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewCollectionHandler(collections *service.CollectionService, logger *slog.Logger, maxUploadBytes int64) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger, maxUploadBytes: maxUploadBytes}
}

type addMemberRequest struct {
	ItemID string `json:"itemId"`
}

// HandleListMine returns the requester's collections.
//
// HTTP: GET /api/collections
func (h *CollectionHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.collections.ListByOwner(r.Context(), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate creates a collection.
//
// HTTP: POST /api/collections
// REQUEST BODY: {"name": "...", "description": "...", "itemIds": [...], "tags": [...], "isPublic": true}
func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CollectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.Create(r.Context(), requester(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleListPublic pages through public collections.
//
// HTTP: GET /api/collections/public?page=1&pageSize=10
func (h *CollectionHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.collections.ListPublic(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSearch matches name, description and tags.
//
// HTTP: GET /api/collections/search?q=rpg&publicOnly=true&page=1&pageSize=10
func (h *CollectionHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	publicOnly, err := boolQuery(r, "publicOnly", true)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.collections.Search(r.Context(), r.URL.Query().Get("q"), publicOnly, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAvailableItems lists games not yet in any of the requester's
// collections, ignoring membership in ?exclude.
//
// HTTP: GET /api/collections/available?exclude={id}
func (h *CollectionHandler) HandleAvailableItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.collections.AvailableItems(r.Context(), requester(r), r.URL.Query().Get("exclude"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns one collection if the caller may see it.
//
// HTTP: GET /api/collections/{id}
func (h *CollectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.collections.GetByID(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleUpdate edits name, description, tags or visibility.
//
// HTTP: PATCH /api/collections/{id}
func (h *CollectionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.CollectionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.Update(r.Context(), chi.URLParam(r, "id"), requester(r), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDelete removes the collection after deleting its media.
//
// HTTP: DELETE /api/collections/{id}
func (h *CollectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.Delete(r.Context(), chi.URLParam(r, "id"), requester(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember adds one of the requester's games.
//
// HTTP: POST /api/collections/{id}/items
// REQUEST BODY: {"itemId": "..."}
func (h *CollectionHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.AddMember(r.Context(), chi.URLParam(r, "id"), req.ItemID, requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleRemoveMember drops a game from the collection.
//
// HTTP: DELETE /api/collections/{id}/items/{itemID}
func (h *CollectionHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	c, err := h.collections.RemoveMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleAddMedia uploads a file and attaches it.
//
// HTTP: POST /api/collections/{id}/media  (multipart: file, type)
func (h *CollectionHandler) HandleAddMedia(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.AddMedia(r.Context(), chi.URLParam(r, "id"), requester(r), up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleRemoveMedia detaches the asset and deletes it from the host.
//
// HTTP: DELETE /api/collections/{id}/media/{assetID}  (asset id URL-encoded)
func (h *CollectionHandler) HandleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	assetID, err := pathParam(r, "assetID")
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.RemoveMedia(r.Context(), chi.URLParam(r, "id"), requester(r), assetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleToggleLike likes or unlikes a public collection.
//
// HTTP: POST /api/collections/{id}/like
func (h *CollectionHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.collections.ToggleLike(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pageQuery(r *http.Request) (int, int, error) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQuery(r, "pageSize", service.DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, apperror.ValidationFailed("page", "page must be 1 or greater")
	}
	return page, pageSize, nil
}
