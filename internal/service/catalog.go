package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/media"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Item defaults applied on create when the field is not supplied.
const (
	DefaultRating = 3
	MinRating     = 1
	MaxRating     = 5
	MaxProgress   = 100
)

// CatalogService manages a user's games.
type CatalogService struct {
	items  repository.ItemRepository
	host   MediaHost
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalogService(items repository.ItemRepository, host MediaHost, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		items:  items,
		host:   host,
		logger: logger,
		now:    time.Now,
	}
}

// DeleteResult reports media that could not be removed from the host.
// The item itself is gone either way.
type DeleteResult struct {
	MediaErrors []string `json:"mediaErrors"`
}

// Create validates in and stores a new game for ownerEmail.
//
// Defaults: progress 0, hoursPlayed 0, rating 3, owned true, releaseDate
// now. The platform tally is NOT touched here; clients increment it with a
// separate request once this one succeeds.
func (s *CatalogService) Create(ctx context.Context, ownerEmail string, in model.ItemInput) (*model.Item, error) {
	owner, err := validEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	platform := strings.TrimSpace(in.Platform)
	switch {
	case title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case platform == "":
		return nil, apperror.ValidationFailed("platform", "platform is required")
	case in.Status == "":
		return nil, apperror.ValidationFailed("status", "status is required")
	case !in.Status.Valid():
		return nil, apperror.ValidationFailed("status", "status must be one of playing, completed, backlog, abandoned")
	}

	item := &model.Item{
		Title:         title,
		Platform:      platform,
		Status:        in.Status,
		Rating:        DefaultRating,
		Description:   in.Description,
		Developer:     in.Developer,
		Publisher:     in.Publisher,
		PersonalNotes: in.PersonalNotes,
		ReleaseDate:   s.now().UTC(),
		Genres:        nonNil(in.Genres),
		PlayMode:      nonNil(in.PlayMode),
		Owned:         true,
		OwnerEmail:    owner,
		ImageURL:      in.ImageURL,
		VideoURL:      in.VideoURL,

		MediaAttachments: []model.MediaAttachment{},
	}
	if in.Progress != nil {
		item.Progress = *in.Progress
	}
	if in.HoursPlayed != nil {
		item.HoursPlayed = *in.HoursPlayed
	}
	if in.Rating != nil {
		item.Rating = *in.Rating
	}
	if in.ReleaseDate != nil {
		item.ReleaseDate = *in.ReleaseDate
	}
	if in.Owned != nil {
		item.Owned = *in.Owned
	}
	if err := validateItemNumbers(item); err != nil {
		return nil, err
	}

	if err := s.ensureTitleFree(ctx, owner, title, ""); err != nil {
		return nil, err
	}

	if err := s.items.Create(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.String("title", item.Title),
		slog.String("owner", owner),
	)
	return item, nil
}

// List returns every game of ownerEmail, newest first.
func (s *CatalogService) List(ctx context.Context, ownerEmail string) ([]model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// Get returns one game if it belongs to ownerEmail.
func (s *CatalogService) Get(ctx context.Context, id, ownerEmail string) (*model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, id, owner)
}

// Update applies patch to the owner's game titled title. Only fields set
// in patch change. Renaming to a title the owner already uses is a
// duplicate.
func (s *CatalogService) Update(ctx context.Context, title, ownerEmail string, patch model.ItemPatch) (*model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetByTitle(ctx, owner, title)
	if err != nil {
		return nil, err
	}

	if err := applyItemPatch(item, patch); err != nil {
		return nil, err
	}
	if err := validateItemNumbers(item); err != nil {
		return nil, err
	}
	if item.Title != title {
		if err := s.ensureTitleFree(ctx, owner, item.Title, item.ID); err != nil {
			return nil, err
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	s.logger.Info("item updated", slog.String("id", item.ID), slog.String("title", item.Title))
	return item, nil
}

// AddMedia attaches an already uploaded asset to the game. Only assets
// uploaded for this item (see UploadMedia) can be attached.
func (s *CatalogService) AddMedia(ctx context.Context, id, ownerEmail string, in model.MediaInput) (*model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.URL) == "" {
		return nil, apperror.ValidationFailed("url", "media url is required")
	}
	if strings.TrimSpace(in.HostAssetID) == "" {
		return nil, apperror.ValidationFailed("hostAssetId", "host asset id is required")
	}
	if err := validateMediaType(in.Type); err != nil {
		return nil, err
	}

	item, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !ownsAsset(item, in.HostAssetID) {
		return nil, apperror.ValidationFailed("hostAssetId", "asset was not uploaded for this item")
	}

	item.MediaAttachments = append(item.MediaAttachments, model.MediaAttachment{
		URL:         in.URL,
		Type:        in.Type,
		HostAssetID: in.HostAssetID,
		Caption:     in.Caption,
		UploadedAt:  s.now().UTC(),
	})
	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("adding media: %w", err)
	}
	return item, nil
}

// RemoveMedia drops the attachment with hostAssetID. A missing attachment
// is not an error: the item is returned unchanged. The binary on the host
// is left alone.
func (s *CatalogService) RemoveMedia(ctx context.Context, id, ownerEmail, hostAssetID string) (*model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	item, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(item.MediaAttachments, func(m model.MediaAttachment) bool {
		return m.HostAssetID == hostAssetID
	})
	if i < 0 {
		return item, nil
	}

	item.MediaAttachments = slices.Delete(item.MediaAttachments, i, i+1)
	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("removing media: %w", err)
	}
	return item, nil
}

// UploadMedia stores a file on the media host for one of the owner's
// games and returns where it lives. Attaching it is a separate AddMedia
// call, so an upload the client abandons never shows up on the item.
func (s *CatalogService) UploadMedia(ctx context.Context, ownerEmail, itemID string, up model.MediaUpload) (*media.Asset, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	if err := validateMediaType(up.Type); err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, apperror.ValidationFailed("file", "file is empty")
	}

	if _, err := s.owned(ctx, itemID, owner); err != nil {
		return nil, err
	}

	asset, err := s.host.Upload(ctx, media.UploadInput{
		Namespace:   itemNamespace(owner, itemID),
		Data:        up.Data,
		ContentType: up.ContentType,
		Type:        up.Type,
	})
	if err != nil {
		s.logger.Error("media upload failed",
			slog.String("itemID", itemID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.External(mediaHostName, err)
	}
	return asset, nil
}

// Delete removes the game and, best effort, every binary it references:
// the legacy image/video URLs and all attachments except placeholders.
//
// Host deletes run concurrently and are all awaited. They are detached
// from ctx so a client hanging up does not abort them halfway. Failures
// are collected into the result; the record is deleted regardless.
func (s *CatalogService) Delete(ctx context.Context, id, ownerEmail string) (*DeleteResult, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	item, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	ids := s.hostAssetIDs(item)
	failures := make([]string, len(ids))
	hostCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, assetID := range ids {
		g.Go(func() error {
			if err := s.deleteAsset(hostCtx, assetID); err != nil {
				failures[i] = fmt.Sprintf("%s: %v", assetID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &DeleteResult{MediaErrors: []string{}}
	for _, f := range failures {
		if f != "" {
			result.MediaErrors = append(result.MediaErrors, f)
		}
	}
	if len(result.MediaErrors) > 0 {
		s.logger.Warn("item media cleanup incomplete",
			slog.String("id", id),
			slog.Any("errors", result.MediaErrors),
		)
	}

	if err := s.items.Delete(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted",
		slog.String("id", id),
		slog.Int("mediaDeleted", len(ids)-len(result.MediaErrors)),
	)
	return result, nil
}

// deleteAsset tries the image resource first and the video resource when
// the host has no image under that id.
func (s *CatalogService) deleteAsset(ctx context.Context, id string) error {
	err := s.host.DeleteImage(ctx, id)
	if errors.Is(err, media.ErrAssetNotFound) {
		err = s.host.DeleteVideo(ctx, id)
	}
	return err
}

// hostAssetIDs lists the distinct host ids an item references that live
// in the item's own upload namespace. Anything else (placeholders, ids
// pasted from someone else's media) is never deleted.
func (s *CatalogService) hostAssetIDs(item *model.Item) []string {
	var ids []string
	add := func(id string) {
		if id == "" || id == model.FallbackAssetID || slices.Contains(ids, id) {
			return
		}
		if !ownsAsset(item, id) {
			s.logger.Warn("skipping media outside item namespace",
				slog.String("id", item.ID),
				slog.String("asset", id),
			)
			return
		}
		ids = append(ids, id)
	}

	if item.ImageURL != "" {
		add(s.host.AssetIDFromURL(item.ImageURL))
	}
	if item.VideoURL != "" {
		add(s.host.AssetIDFromURL(item.VideoURL))
	}
	for _, m := range item.MediaAttachments {
		add(m.HostAssetID)
	}
	return ids
}

// itemNamespace is the host folder uploads for one item go into.
func itemNamespace(owner, itemID string) string {
	return path.Join("items", owner, itemID)
}

// ownsAsset reports whether id was uploaded for item.
func ownsAsset(item *model.Item, id string) bool {
	return strings.HasPrefix(id, itemNamespace(item.OwnerEmail, item.ID)+"/")
}

// owned loads the item and hides other users' items as NotFound.
func (s *CatalogService) owned(ctx context.Context, id, owner string) (*model.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerEmail != owner {
		return nil, apperror.NotFound("item", id)
	}
	return item, nil
}

// ensureTitleFree fails with a duplicate error when owner already has a
// game titled title other than exceptID. The check is read-then-write;
// two concurrent creates of the same title can both pass.
func (s *CatalogService) ensureTitleFree(ctx context.Context, owner, title, exceptID string) error {
	existing, err := s.items.GetByTitle(ctx, owner, title)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking title: %w", err)
	case existing.ID == exceptID:
		return nil
	}
	return apperror.Duplicate("item", "title", title)
}

func applyItemPatch(item *model.Item, p model.ItemPatch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return apperror.ValidationFailed("title", "title cannot be empty")
		}
		item.Title = t
	}
	if p.Platform != nil {
		pl := strings.TrimSpace(*p.Platform)
		if pl == "" {
			return apperror.ValidationFailed("platform", "platform cannot be empty")
		}
		item.Platform = pl
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return apperror.ValidationFailed("status", "status must be one of playing, completed, backlog, abandoned")
		}
		item.Status = *p.Status
	}
	setIf(&item.Progress, p.Progress)
	setIf(&item.HoursPlayed, p.HoursPlayed)
	setIf(&item.Rating, p.Rating)
	setIf(&item.Description, p.Description)
	setIf(&item.Developer, p.Developer)
	setIf(&item.Publisher, p.Publisher)
	setIf(&item.PersonalNotes, p.PersonalNotes)
	setIf(&item.ReleaseDate, p.ReleaseDate)
	setIf(&item.Owned, p.Owned)
	setIf(&item.ImageURL, p.ImageURL)
	setIf(&item.VideoURL, p.VideoURL)
	if p.Genres != nil {
		item.Genres = p.Genres
	}
	if p.PlayMode != nil {
		item.PlayMode = p.PlayMode
	}
	return nil
}

func validateItemNumbers(item *model.Item) error {
	if item.Progress < 0 || item.Progress > MaxProgress {
		return apperror.ValidationFailed("progress", "progress must be between 0 and 100")
	}
	if item.HoursPlayed < 0 {
		return apperror.ValidationFailed("hoursPlayed", "hours played cannot be negative")
	}
	if item.Rating < MinRating || item.Rating > MaxRating {
		return apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
