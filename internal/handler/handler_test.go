package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/game-library/internal/auth"
	"github.com/sakif/game-library/internal/handler"
	"github.com/sakif/game-library/internal/media"
	"github.com/sakif/game-library/internal/model"
	sqliteRepo "github.com/sakif/game-library/internal/repository/sqlite"
	"github.com/sakif/game-library/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================

// fakeHost is an in-memory media host.
type fakeHost struct {
	mu      sync.Mutex
	assets  map[string]model.MediaType
	uploads int
	fail    error
}

func newFakeHost() *fakeHost { return &fakeHost{assets: map[string]model.MediaType{}} }

func (f *fakeHost) Upload(_ context.Context, in media.UploadInput) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.uploads++
	id := fmt.Sprintf("%s/asset%d", in.Namespace, f.uploads)
	f.assets[id] = in.Type
	return &media.Asset{ID: id, URL: "https://cdn.test/" + string(in.Type) + "/" + id, Type: in.Type}, nil
}

func (f *fakeHost) remove(t model.MediaType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if got, ok := f.assets[id]; !ok || got != t {
		return media.ErrAssetNotFound
	}
	delete(f.assets, id)
	return nil
}

func (f *fakeHost) DeleteImage(_ context.Context, id string) error {
	return f.remove(model.MediaImage, id)
}

func (f *fakeHost) DeleteVideo(_ context.Context, id string) error {
	return f.remove(model.MediaVideo, id)
}

func (f *fakeHost) DeleteAssets(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, id := range ids {
		delete(f.assets, id)
	}
	return nil
}

func (f *fakeHost) AssetIDFromURL(raw string) string { return media.LegacyAssetID(raw) }

func (f *fakeHost) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.assets[id]
	return ok
}

type testEnv struct {
	router http.Handler
	tokens *auth.TokenService
	host   *fakeHost
}

const maxUpload = 1 << 10

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host := newFakeHost()

	catalog := service.NewCatalogService(db.Items(), host, logger)
	collections := service.NewCollectionService(db.Collections(), db.Items(), host, logger)
	platforms := service.NewPlatformService(db.Platforms(), logger)

	items := handler.NewItemHandler(catalog, logger, maxUpload)
	cols := handler.NewCollectionHandler(collections, logger, maxUpload)
	plats := handler.NewPlatformHandler(platforms, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/collections/public", cols.HandleListPublic)
		r.Get("/collections/search", cols.HandleSearch)
		r.With(auth.OptionalAuth(tokens)).Get("/collections/{id}", cols.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/items", items.HandleList)
			r.Post("/items", items.HandleCreate)
			r.Get("/items/{id}", items.HandleGet)
			r.Delete("/items/{id}", items.HandleDelete)
			r.Patch("/items/by-title/{title}", items.HandleUpdate)
			r.Post("/items/{id}/media", items.HandleAddMedia)
			r.Delete("/items/{id}/media/{assetID}", items.HandleRemoveMedia)
			r.Post("/items/{id}/uploads", items.HandleUpload)

			r.Get("/collections", cols.HandleListMine)
			r.Post("/collections", cols.HandleCreate)
			r.Get("/collections/available", cols.HandleAvailableItems)
			r.Patch("/collections/{id}", cols.HandleUpdate)
			r.Delete("/collections/{id}", cols.HandleDelete)
			r.Post("/collections/{id}/items", cols.HandleAddMember)
			r.Delete("/collections/{id}/items/{itemID}", cols.HandleRemoveMember)
			r.Post("/collections/{id}/media", cols.HandleAddMedia)
			r.Delete("/collections/{id}/media/{assetID}", cols.HandleRemoveMedia)
			r.Post("/collections/{id}/like", cols.HandleToggleLike)

			r.Get("/platforms", plats.HandleList)
			r.Post("/platforms/{name}/increment", plats.HandleIncrement)
			r.Get("/platforms/{id}", plats.HandleGet)
			r.Put("/platforms/{id}", plats.HandleUpdate)
			r.Delete("/platforms/{id}", plats.HandleDelete)
		})
	})

	return &testEnv{router: r, tokens: tokens, host: host}
}

// do sends a JSON request as email ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, target, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	e.authorize(t, req, email)

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) upload(t *testing.T, target, email, mediaType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if mediaType != "" {
		require.NoError(t, mw.WriteField("type", mediaType))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	e.authorize(t, req, email)

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) authorize(t *testing.T, req *http.Request, email string) {
	t.Helper()
	if email == "" {
		return
	}
	token, err := e.tokens.Generate("user-"+email, email)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func (e *testEnv) createItem(t *testing.T, email, title string) model.Item {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/items", email, map[string]any{
		"title": title, "platform": "PC", "status": "playing",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Item](t, rr)
}

func (e *testEnv) createCollection(t *testing.T, email string, in model.CollectionInput) model.CollectionView {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/collections", email, in)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.CollectionView](t, rr)
}

// pngBytes starts with the PNG signature so content sniffing says image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// =========================================================================
// ITEMS
// =========================================================================

func TestItems_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/items", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "unauthorized")
}

func TestItems_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	created := env.createItem(t, "A@x.com", "Hades")
	assert.Equal(t, "a@x.com", created.OwnerEmail)
	assert.Equal(t, 3, created.Rating)
	assert.True(t, created.Owned)

	env.createItem(t, "b@x.com", "Celeste")

	rr := env.do(t, http.MethodGet, "/api/items", "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]model.Item](t, rr)
	require.Len(t, items, 1)
	assert.Equal(t, "Hades", items[0].Title)
}

func TestItems_CreateErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"rating out of range", `{"title":"X","platform":"PC","status":"playing","rating":6}`, "rating"},
		{"missing title", `{"platform":"PC","status":"playing"}`, "title"},
		{"bad status", `{"title":"X","platform":"PC","status":"later"}`, "status"},
		{"malformed json", `{"title":`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(tt.body))
			env.authorize(t, req, "a@x.com")
			rr := httptest.NewRecorder()

			env.router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			res := decode[handler.ErrorResponse](t, rr)
			assert.Equal(t, "validation_error", res.Error)
			assert.Equal(t, tt.wantField, res.Field)
		})
	}
}

func TestItems_DuplicateTitleIsValidationError(t *testing.T) {
	env := newTestEnv(t)
	env.createItem(t, "a@x.com", "Hades")

	rr := env.do(t, http.MethodPost, "/api/items", "a@x.com", map[string]any{
		"title": "Hades", "platform": "Switch", "status": "backlog",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	res := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", res.Error)
	assert.Equal(t, "title", res.Field)
}

func TestItems_GetOtherOwnerIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "a@x.com", "Hades")

	rr := env.do(t, http.MethodGet, "/api/items/"+item.ID, "b@x.com", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)
}

func TestItems_UpdateByTitle(t *testing.T) {
	env := newTestEnv(t)
	env.createItem(t, "a@x.com", "Hades II")

	rr := env.do(t, http.MethodPatch, "/api/items/by-title/Hades%20II", "a@x.com", map[string]any{
		"progress": 55, "status": "completed",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[model.Item](t, rr)
	assert.Equal(t, 55, got.Progress)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "PC", got.Platform)
}

func TestItems_MediaLifecycle(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "a@x.com", "Hades")

	rr := env.upload(t, "/api/items/"+item.ID+"/uploads", "a@x.com", "", pngBytes)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	asset := decode[media.Asset](t, rr)
	assert.Equal(t, model.MediaImage, asset.Type)
	assert.True(t, strings.HasPrefix(asset.ID, "items/a@x.com/"+item.ID+"/"))

	rr = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/media", "a@x.com", model.MediaInput{
		URL: asset.URL, Type: asset.Type, HostAssetID: asset.ID, Caption: "cover",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, decode[model.Item](t, rr).MediaAttachments, 1)

	// The asset id contains slashes and travels URL-encoded.
	target := "/api/items/" + item.ID + "/media/" + strings.ReplaceAll(asset.ID, "/", "%2F")
	rr = env.do(t, http.MethodDelete, target, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[model.Item](t, rr).MediaAttachments)
}

func TestItems_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "a@x.com", "Hades")

	rr := env.upload(t, "/api/items/"+item.ID+"/uploads", "a@x.com", "image", bytes.Repeat([]byte("x"), 2*maxUpload))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "file", decode[handler.ErrorResponse](t, rr).Field)
}

func TestItems_UploadHostDown(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "a@x.com", "Hades")
	env.host.fail = media.ErrUnavailable

	rr := env.upload(t, "/api/items/"+item.ID+"/uploads", "a@x.com", "image", pngBytes)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "external_service_error", decode[handler.ErrorResponse](t, rr).Error)
}

func TestItems_AttachForeignAssetRejected(t *testing.T) {
	env := newTestEnv(t)
	theirs := env.createItem(t, "b@x.com", "Celeste")
	rr := env.upload(t, "/api/items/"+theirs.ID+"/uploads", "b@x.com", "image", pngBytes)
	require.Equal(t, http.StatusCreated, rr.Code)
	asset := decode[media.Asset](t, rr)

	mine := env.createItem(t, "a@x.com", "Hades")
	rr = env.do(t, http.MethodPost, "/api/items/"+mine.ID+"/media", "a@x.com", model.MediaInput{
		URL: asset.URL, Type: asset.Type, HostAssetID: asset.ID,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "hostAssetId", decode[handler.ErrorResponse](t, rr).Field)

	rr = env.do(t, http.MethodDelete, "/api/items/"+mine.ID, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.host.has(asset.ID), "another owner's asset must survive")
}

func TestItems_DeleteCleansUpMedia(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t, "a@x.com", "Hades")
	rr := env.upload(t, "/api/items/"+item.ID+"/uploads", "a@x.com", "video", []byte("mp4"))
	require.Equal(t, http.StatusCreated, rr.Code)
	asset := decode[media.Asset](t, rr)
	rr = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/media", "a@x.com", model.MediaInput{
		URL: asset.URL, Type: asset.Type, HostAssetID: asset.ID,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/items/"+item.ID, "a@x.com", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"mediaErrors":[]}`, rr.Body.String())
	assert.False(t, env.host.has(asset.ID), "video should be deleted from the host")

	rr = env.do(t, http.MethodGet, "/api/items/"+item.ID, "a@x.com", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// =========================================================================
// COLLECTIONS
// =========================================================================

func TestCollections_Visibility(t *testing.T) {
	env := newTestEnv(t)
	private := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Secret"})
	public := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Shared", IsPublic: true})

	tests := []struct {
		name   string
		id     string
		email  string
		status int
	}{
		{"anonymous private", private.ID, "", http.StatusForbidden},
		{"stranger private", private.ID, "b@x.com", http.StatusForbidden},
		{"owner private", private.ID, "a@x.com", http.StatusOK},
		{"anonymous public", public.ID, "", http.StatusOK},
		{"missing", "nope", "a@x.com", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/collections/"+tt.id, tt.email, nil)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestCollections_PublicReadCountsView(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Shared", IsPublic: true})

	env.do(t, http.MethodGet, "/api/collections/"+c.ID, "", nil)
	rr := env.do(t, http.MethodGet, "/api/collections/"+c.ID, "b@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[model.CollectionView](t, rr).Views)

	rr = env.do(t, http.MethodGet, "/api/collections/"+c.ID, "a@x.com", nil)
	assert.Equal(t, 2, decode[model.CollectionView](t, rr).Views, "owner reads are not counted")
}

func TestCollections_MembersJoinItems(t *testing.T) {
	env := newTestEnv(t)
	hades := env.createItem(t, "a@x.com", "Hades")
	celeste := env.createItem(t, "a@x.com", "Celeste")
	c := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Mine", ItemIDs: []string{hades.ID}})

	rr := env.do(t, http.MethodPost, "/api/collections/"+c.ID+"/items", "a@x.com", map[string]string{"itemId": celeste.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[model.CollectionView](t, rr)
	require.Len(t, view.Members, 2)
	assert.Equal(t, "Celeste", view.Members[1].Item.Title)

	rr = env.do(t, http.MethodPost, "/api/collections/"+c.ID+"/items", "a@x.com", map[string]string{"itemId": celeste.ID})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/collections/available?exclude="+c.ID, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Item](t, rr), 2)

	rr = env.do(t, http.MethodDelete, "/api/collections/"+c.ID+"/items/"+hades.ID, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[model.CollectionView](t, rr).Members, 1)

	rr = env.do(t, http.MethodGet, "/api/collections/available", "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	available := decode[[]model.Item](t, rr)
	require.Len(t, available, 1)
	assert.Equal(t, "Hades", available[0].Title)
}

func TestCollections_WriteByStrangerIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Mine", IsPublic: true})

	rr := env.do(t, http.MethodPatch, "/api/collections/"+c.ID, "b@x.com", map[string]any{"name": "Theirs"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/collections/"+c.ID, "b@x.com", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCollections_ListPublicAndSearch(t *testing.T) {
	env := newTestEnv(t)
	for i := range 3 {
		env.createCollection(t, "a@x.com", model.CollectionInput{Name: fmt.Sprintf("RPG night %d", i), IsPublic: true})
	}
	env.createCollection(t, "b@x.com", model.CollectionInput{Name: "hidden rpg"})

	rr := env.do(t, http.MethodGet, "/api/collections/public?page=2&pageSize=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[model.Page[model.CollectionView]](t, rr)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Records, 1)

	rr = env.do(t, http.MethodGet, "/api/collections/search?q=rpg", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[model.Page[model.CollectionView]](t, rr).TotalCount)

	rr = env.do(t, http.MethodGet, "/api/collections/search?q=rpg&publicOnly=false", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, decode[model.Page[model.CollectionView]](t, rr).TotalCount)

	rr = env.do(t, http.MethodGet, "/api/collections/search?q=rpg&publicOnly=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/collections/public?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCollections_Like(t *testing.T) {
	env := newTestEnv(t)
	public := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Shared", IsPublic: true})
	private := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Secret"})

	rr := env.do(t, http.MethodPost, "/api/collections/"+public.ID+"/like", "b@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.LikeResult{Liked: true, LikeCount: 1}, decode[model.LikeResult](t, rr))

	rr = env.do(t, http.MethodPost, "/api/collections/"+public.ID+"/like", "b@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.LikeResult{Liked: false, LikeCount: 0}, decode[model.LikeResult](t, rr))

	rr = env.do(t, http.MethodPost, "/api/collections/"+private.ID+"/like", "a@x.com", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/collections/"+public.ID+"/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCollections_MediaLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Mine"})

	rr := env.upload(t, "/api/collections/"+c.ID+"/media", "a@x.com", "image", pngBytes)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	view := decode[model.CollectionView](t, rr)
	require.Len(t, view.Media, 1)
	assetID := view.Media[0].HostAssetID
	assert.True(t, env.host.has(assetID))

	target := "/api/collections/" + c.ID + "/media/" + strings.ReplaceAll(assetID, "/", "%2F")
	rr = env.do(t, http.MethodDelete, target, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[model.CollectionView](t, rr).Media)
	assert.False(t, env.host.has(assetID))

	rr = env.do(t, http.MethodDelete, target, "a@x.com", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCollections_DeleteHostFailure(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCollection(t, "a@x.com", model.CollectionInput{Name: "Mine"})
	rr := env.upload(t, "/api/collections/"+c.ID+"/media", "a@x.com", "image", pngBytes)
	require.Equal(t, http.StatusCreated, rr.Code)

	env.host.fail = media.ErrUnavailable
	rr = env.do(t, http.MethodDelete, "/api/collections/"+c.ID, "a@x.com", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	env.host.fail = nil
	rr = env.do(t, http.MethodGet, "/api/collections/"+c.ID, "a@x.com", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "collection must survive a failed media delete")

	rr = env.do(t, http.MethodDelete, "/api/collections/"+c.ID, "a@x.com", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

// =========================================================================
// PLATFORMS
// =========================================================================

func TestPlatforms(t *testing.T) {
	env := newTestEnv(t)

	for range 2 {
		rr := env.do(t, http.MethodPost, "/api/platforms/PlayStation%205/increment", "a@x.com", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	rr := env.do(t, http.MethodPost, "/api/platforms/Switch/increment", "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/platforms", "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]model.PlatformTally](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, "PlayStation 5", list[0].Name)
	assert.Equal(t, 2, list[0].Count)

	rr = env.do(t, http.MethodGet, "/api/platforms?q=station", "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.PlatformTally](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/platforms/"+list[1].ID, "a@x.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Switch", decode[model.PlatformTally](t, rr).Name)

	rr = env.do(t, http.MethodGet, "/api/platforms/"+list[1].ID, "b@x.com", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/platforms/"+list[1].ID, "a@x.com", map[string]any{"name": "Switch 2", "count": 5})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[model.PlatformTally](t, rr)
	assert.Equal(t, "Switch 2", updated.Name)
	assert.Equal(t, 5, updated.Count)

	rr = env.do(t, http.MethodPut, "/api/platforms/"+list[1].ID, "a@x.com", map[string]any{"name": "PlayStation 5"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/platforms/"+list[1].ID, "b@x.com", map[string]any{"count": 0})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/platforms/"+list[1].ID, "b@x.com", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/platforms/"+list[1].ID, "a@x.com", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
