package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/media"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes for the repository interfaces and MediaHost. They
// store copies, never the caller's pointer, so a test cannot accidentally
// observe a write the service never persisted.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fakeItemRepo struct {
	items  map[string]*model.Item
	order  []string // creation order
	nextID int

	updateErr error
	deleteErr error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[string]*model.Item{}}
}

var _ repository.ItemRepository = (*fakeItemRepo)(nil)

func (f *fakeItemRepo) Create(_ context.Context, item *model.Item) error {
	f.nextID++
	item.ID = fmt.Sprintf("item-%d", f.nextID)
	stored := *item
	f.items[item.ID] = &stored
	f.order = append(f.order, item.ID)
	return nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, id string) (*model.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperror.NotFound("item", id)
	}
	out := *item
	out.MediaAttachments = slices.Clone(item.MediaAttachments)
	return &out, nil
}

func (f *fakeItemRepo) GetByTitle(ctx context.Context, owner, title string) (*model.Item, error) {
	for _, id := range f.order {
		if it, ok := f.items[id]; ok && it.OwnerEmail == owner && it.Title == title {
			return f.GetByID(ctx, id)
		}
	}
	return nil, apperror.NotFound("item", title)
}

func (f *fakeItemRepo) ListByOwner(_ context.Context, owner string) ([]model.Item, error) {
	out := []model.Item{}
	for i := len(f.order) - 1; i >= 0; i-- {
		if it, ok := f.items[f.order[i]]; ok && it.OwnerEmail == owner {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) Update(_ context.Context, item *model.Item) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.items[item.ID]; !ok {
		return apperror.NotFound("item", item.ID)
	}
	stored := *item
	stored.MediaAttachments = slices.Clone(item.MediaAttachments)
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return apperror.NotFound("item", id)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeItemRepo) Summaries(_ context.Context, ids []string) (map[string]model.ItemSummary, error) {
	out := map[string]model.ItemSummary{}
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out[id] = it.Summary()
		}
	}
	return out, nil
}

// put stores an item directly, bypassing the service.
func (f *fakeItemRepo) put(owner, title string) *model.Item {
	item := &model.Item{OwnerEmail: owner, Title: title, Platform: "PC", Status: model.StatusBacklog, Rating: 3}
	_ = f.Create(context.Background(), item)
	return item
}

type fakeCollectionRepo struct {
	collections map[string]*model.Collection
	order       []string
	nextID      int

	incrementErr error
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{collections: map[string]*model.Collection{}}
}

var _ repository.CollectionRepository = (*fakeCollectionRepo)(nil)

func cloneCollection(c *model.Collection) *model.Collection {
	out := *c
	out.Members = slices.Clone(c.Members)
	out.Media = slices.Clone(c.Media)
	out.Tags = slices.Clone(c.Tags)
	out.Likes = slices.Clone(c.Likes)
	return &out
}

func (f *fakeCollectionRepo) Create(_ context.Context, c *model.Collection) error {
	f.nextID++
	c.ID = fmt.Sprintf("col-%d", f.nextID)
	f.collections[c.ID] = cloneCollection(c)
	f.order = append(f.order, c.ID)
	return nil
}

func (f *fakeCollectionRepo) GetByID(_ context.Context, id string) (*model.Collection, error) {
	c, ok := f.collections[id]
	if !ok {
		return nil, apperror.NotFound("collection", id)
	}
	return cloneCollection(c), nil
}

func (f *fakeCollectionRepo) ListByOwner(_ context.Context, owner string) ([]model.Collection, error) {
	out := []model.Collection{}
	for i := len(f.order) - 1; i >= 0; i-- {
		if c, ok := f.collections[f.order[i]]; ok && c.OwnerEmail == owner {
			out = append(out, *cloneCollection(c))
		}
	}
	return out, nil
}

func (f *fakeCollectionRepo) filter(keep func(*model.Collection) bool, opts repository.ListOptions) ([]model.Collection, int, error) {
	var all []model.Collection
	for i := len(f.order) - 1; i >= 0; i-- {
		if c, ok := f.collections[f.order[i]]; ok && keep(c) {
			all = append(all, *cloneCollection(c))
		}
	}
	total := len(all)
	if opts.Offset >= total {
		return []model.Collection{}, total, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, total, nil
}

func (f *fakeCollectionRepo) ListPublic(_ context.Context, opts repository.ListOptions) ([]model.Collection, int, error) {
	return f.filter(func(c *model.Collection) bool { return c.IsPublic }, opts)
}

func (f *fakeCollectionRepo) Search(_ context.Context, q string, publicOnly bool, opts repository.ListOptions) ([]model.Collection, int, error) {
	q = strings.ToLower(q)
	return f.filter(func(c *model.Collection) bool {
		if publicOnly && !c.IsPublic {
			return false
		}
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
			return true
		}
		return slices.ContainsFunc(c.Tags, func(t string) bool { return strings.Contains(t, q) })
	}, opts)
}

func (f *fakeCollectionRepo) Update(_ context.Context, c *model.Collection) error {
	stored, ok := f.collections[c.ID]
	if !ok {
		return apperror.NotFound("collection", c.ID)
	}
	next := cloneCollection(c)
	next.Views = stored.Views
	f.collections[c.ID] = next
	return nil
}

func (f *fakeCollectionRepo) IncrementViews(_ context.Context, id string) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	c, ok := f.collections[id]
	if !ok {
		return apperror.NotFound("collection", id)
	}
	c.Views++
	return nil
}

func (f *fakeCollectionRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.collections[id]; !ok {
		return apperror.NotFound("collection", id)
	}
	delete(f.collections, id)
	return nil
}

type fakePlatformRepo struct {
	tallies map[string]*model.PlatformTally
	nextID  int
}

func newFakePlatformRepo() *fakePlatformRepo {
	return &fakePlatformRepo{tallies: map[string]*model.PlatformTally{}}
}

var _ repository.PlatformRepository = (*fakePlatformRepo)(nil)

func (f *fakePlatformRepo) UpsertIncrement(_ context.Context, name, owner string) (*model.PlatformTally, error) {
	for _, p := range f.tallies {
		if p.Name == name && p.OwnerEmail == owner {
			p.Count++
			out := *p
			return &out, nil
		}
	}
	f.nextID++
	p := &model.PlatformTally{ID: fmt.Sprintf("plat-%d", f.nextID), Name: name, OwnerEmail: owner, Count: 1}
	f.tallies[p.ID] = p
	out := *p
	return &out, nil
}

func (f *fakePlatformRepo) ListByOwner(_ context.Context, owner string) ([]model.PlatformTally, error) {
	out := []model.PlatformTally{}
	for _, p := range f.tallies {
		if p.OwnerEmail == owner {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlatformRepo) SearchByName(_ context.Context, owner, q string) ([]model.PlatformTally, error) {
	out := []model.PlatformTally{}
	for _, p := range f.tallies {
		if p.OwnerEmail == owner && strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlatformRepo) GetByID(_ context.Context, id string) (*model.PlatformTally, error) {
	p, ok := f.tallies[id]
	if !ok {
		return nil, apperror.NotFound("platform", id)
	}
	out := *p
	return &out, nil
}

func (f *fakePlatformRepo) Update(_ context.Context, p *model.PlatformTally) error {
	stored, ok := f.tallies[p.ID]
	if !ok {
		return apperror.NotFound("platform", p.ID)
	}
	for _, other := range f.tallies {
		if other.ID != p.ID && other.OwnerEmail == stored.OwnerEmail && other.Name == p.Name {
			return apperror.Duplicate("platform", "name", p.Name)
		}
	}
	stored.Name = p.Name
	stored.Count = p.Count
	return nil
}

func (f *fakePlatformRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.tallies[id]; !ok {
		return apperror.NotFound("platform", id)
	}
	delete(f.tallies, id)
	return nil
}

// fakeHost records every call. Item deletes call it from several
// goroutines, hence the mutex.
type fakeHost struct {
	mu sync.Mutex

	images map[string]bool
	videos map[string]bool
	fail   map[string]error // id → error for single deletes

	uploadErr error
	bulkErr   error

	deleteCalls []string // "image:<id>" / "video:<id>"
	bulkCalls   [][]string
	uploads     []media.UploadInput
}

var _ MediaHost = (*fakeHost)(nil)

func newFakeHost() *fakeHost {
	return &fakeHost{images: map[string]bool{}, videos: map[string]bool{}, fail: map[string]error{}}
}

func (f *fakeHost) Upload(_ context.Context, in media.UploadInput) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, in)
	id := fmt.Sprintf("%s/asset%d", in.Namespace, len(f.uploads))
	if in.Type == model.MediaVideo {
		f.videos[id] = true
	} else {
		f.images[id] = true
	}
	return &media.Asset{ID: id, URL: "https://cdn.test/" + string(in.Type) + "/" + id, Type: in.Type}, nil
}

func (f *fakeHost) deleteFrom(kind string, set map[string]bool, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, kind+":"+id)
	if err := f.fail[id]; err != nil {
		return err
	}
	if !set[id] {
		return media.ErrAssetNotFound
	}
	delete(set, id)
	return nil
}

func (f *fakeHost) DeleteImage(_ context.Context, id string) error {
	return f.deleteFrom("image", f.images, id)
}

func (f *fakeHost) DeleteVideo(_ context.Context, id string) error {
	return f.deleteFrom("video", f.videos, id)
}

func (f *fakeHost) DeleteAssets(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls = append(f.bulkCalls, slices.Clone(ids))
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for _, id := range ids {
		delete(f.images, id)
		delete(f.videos, id)
	}
	return nil
}

func (f *fakeHost) AssetIDFromURL(url string) string {
	return media.LegacyAssetID(url)
}

// callsFor returns the delete calls that touched id.
func (f *fakeHost) callsFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.deleteCalls {
		if strings.HasSuffix(c, ":"+id) {
			out = append(out, c)
		}
	}
	return out
}

var errHostDown = errors.New("host unreachable")
