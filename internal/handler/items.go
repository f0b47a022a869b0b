package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/service"
)

// ItemHandler serves a user's game catalog. Every route sits behind
// auth.RequireAuth; the requester email is the owner for all operations.
type ItemHandler struct {
	catalog        *service.CatalogService
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewItemHandler(catalog *service.CatalogService, logger *slog.Logger, maxUploadBytes int64) *ItemHandler {
	return &ItemHandler{catalog: catalog, logger: logger, maxUploadBytes: maxUploadBytes}
}

// HandleList returns the requester's games, newest first.
//
// HTTP: GET /api/items
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context(), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreate catalogs a new game.
//
// HTTP: POST /api/items
// REQUEST BODY: {"title": "Hades II", "platform": "PC", "status": "playing", ...}
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.catalog.Create(r.Context(), requester(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleGet returns one of the requester's games.
//
// HTTP: GET /api/items/{id}
func (h *ItemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleUpdate applies a partial update to the game with the given title.
//
// HTTP: PATCH /api/items/by-title/{title}
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	title, err := pathParam(r, "title")
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.catalog.Update(r.Context(), title, requester(r), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleDelete removes the game and, best effort, its media.
// Media that could not be removed is listed in the 200 response.
//
// HTTP: DELETE /api/items/{id}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAddMedia attaches an already uploaded asset.
//
// HTTP: POST /api/items/{id}/media
// REQUEST BODY: {"url": "...", "type": "image", "hostAssetId": "...", "caption": "..."}
func (h *ItemHandler) HandleAddMedia(w http.ResponseWriter, r *http.Request) {
	var in model.MediaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.catalog.AddMedia(r.Context(), chi.URLParam(r, "id"), requester(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleRemoveMedia detaches an asset. The asset id usually contains
// slashes, so clients send it URL-encoded.
//
// HTTP: DELETE /api/items/{id}/media/{assetID}
func (h *ItemHandler) HandleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	assetID, err := pathParam(r, "assetID")
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.catalog.RemoveMedia(r.Context(), chi.URLParam(r, "id"), requester(r), assetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleUpload stores a file on the media host and returns its url and
// asset id. The client then attaches it with HandleAddMedia.
//
// HTTP: POST /api/items/{id}/uploads  (multipart: file, type)
func (h *ItemHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	asset, err := h.catalog.UploadMedia(r.Context(), requester(r), chi.URLParam(r, "id"), up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}
