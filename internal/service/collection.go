package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/media"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

const (
	MaxCollectionNameLength        = 100
	MaxCollectionDescriptionLength = 500
)

// CollectionService manages named groupings of a user's games.
//
// Members are stored as bare item ids. Every read joins them with the
// current item fields (see view), so a renamed game shows its new title
// in every collection without a write to the collection.
type CollectionService struct {
	collections repository.CollectionRepository
	items       repository.ItemRepository
	host        MediaHost
	logger      *slog.Logger
	now         func() time.Time
}

func NewCollectionService(
	collections repository.CollectionRepository,
	items repository.ItemRepository,
	host MediaHost,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		collections: collections,
		items:       items,
		host:        host,
		logger:      logger,
		now:         time.Now,
	}
}

// Create stores a new collection. Initial members must be the owner's own
// games; repeated ids are kept once.
func (s *CollectionService) Create(ctx context.Context, ownerEmail string, in model.CollectionInput) (*model.CollectionView, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validateCollectionText(name, in.Description); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	members := []model.CollectionMember{}
	seen := map[string]bool{}
	for _, itemID := range in.ItemIDs {
		if seen[itemID] {
			continue
		}
		seen[itemID] = true
		if err := s.checkItemOwner(ctx, itemID, owner); err != nil {
			return nil, err
		}
		members = append(members, model.CollectionMember{ItemID: itemID, AddedAt: now})
	}

	c := &model.Collection{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		OwnerEmail:  owner,
		Members:     members,
		Media:       []model.MediaAttachment{},
		Tags:        normalizeTags(in.Tags),
		IsPublic:    in.IsPublic,
		Likes:       []model.CollectionLike{},
	}
	if err := s.collections.Create(ctx, c); err != nil {
		s.logger.Error("failed to create collection",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	s.logger.Info("collection created",
		slog.String("id", c.ID),
		slog.String("name", c.Name),
		slog.Int("members", len(members)),
	)

	// Re-read so the response is exactly what a later GetByID returns.
	stored, err := s.collections.GetByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading collection: %w", err)
	}
	return s.view(ctx, stored)
}

// GetByID returns the collection if the requester may see it. A private
// collection is only visible to its owner; anyone else, anonymous
// included, gets AccessDenied.
//
// A non-owner reading a public collection counts as a view. A failed
// increment is logged and does not fail the read.
func (s *CollectionService) GetByID(ctx context.Context, id, requesterEmail string) (*model.CollectionView, error) {
	requester := normalizeEmail(requesterEmail)

	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := requester != "" && requester == c.OwnerEmail
	if !c.IsPublic && !isOwner {
		return nil, apperror.AccessDenied("this collection is private")
	}

	if !isOwner {
		if err := s.collections.IncrementViews(ctx, c.ID); err != nil {
			s.logger.Warn("failed to count collection view",
				slog.String("id", c.ID),
				slog.String("error", err.Error()),
			)
		} else {
			c.Views++
		}
	}

	return s.view(ctx, c)
}

// ListByOwner returns the owner's collections, most recently updated first.
func (s *CollectionService) ListByOwner(ctx context.Context, ownerEmail string) ([]model.CollectionView, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	list, err := s.collections.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return s.views(ctx, list)
}

// ListPublic pages through everyone's public collections, newest first.
func (s *CollectionService) ListPublic(ctx context.Context, page, pageSize int) (*model.Page[model.CollectionView], error) {
	page, pageSize, offset := pageBounds(page, pageSize)

	list, total, err := s.collections.ListPublic(ctx, repository.ListOptions{Limit: pageSize, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing public collections: %w", err)
	}

	views, err := s.views(ctx, list)
	if err != nil {
		return nil, err
	}
	return newPage(views, total, page, pageSize), nil
}

// Search matches query case-insensitively against name, description and
// tags. With publicOnly false private collections of every owner match
// too, mirroring the admin-style search of the web client.
func (s *CollectionService) Search(ctx context.Context, query string, publicOnly bool, page, pageSize int) (*model.Page[model.CollectionView], error) {
	page, pageSize, offset := pageBounds(page, pageSize)

	list, total, err := s.collections.Search(ctx, strings.TrimSpace(query), publicOnly,
		repository.ListOptions{Limit: pageSize, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("searching collections: %w", err)
	}

	views, err := s.views(ctx, list)
	if err != nil {
		return nil, err
	}
	return newPage(views, total, page, pageSize), nil
}

// Update changes name, description, tags or visibility. Membership and
// media have their own operations.
func (s *CollectionService) Update(ctx context.Context, id, ownerEmail string, patch model.CollectionPatch) (*model.CollectionView, error) {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		c.Description = strings.TrimSpace(*patch.Description)
	}
	if err := validateCollectionText(c.Name, c.Description); err != nil {
		return nil, err
	}
	if patch.Tags != nil {
		c.Tags = normalizeTags(patch.Tags)
	}
	if patch.IsPublic != nil {
		c.IsPublic = *patch.IsPublic
	}

	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating collection: %w", err)
	}
	s.logger.Info("collection updated", slog.String("id", c.ID))
	return s.view(ctx, c)
}

// AddMember appends one of the owner's games. The duplicate check is
// read-then-write: two identical concurrent calls may both succeed.
func (s *CollectionService) AddMember(ctx context.Context, id, itemID, ownerEmail string) (*model.CollectionView, error) {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, apperror.ValidationFailed("itemId", "item id is required")
	}
	if err := s.checkItemOwner(ctx, itemID, c.OwnerEmail); err != nil {
		return nil, err
	}
	if c.HasMember(itemID) {
		return nil, apperror.Duplicate("collection member", "itemId", itemID)
	}

	c.Members = append(c.Members, model.CollectionMember{ItemID: itemID, AddedAt: s.now().UTC()})
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}
	return s.view(ctx, c)
}

// RemoveMember fails with NotFound when itemID is not a member.
func (s *CollectionService) RemoveMember(ctx context.Context, id, itemID, ownerEmail string) (*model.CollectionView, error) {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return nil, err
	}
	if !c.RemoveMember(itemID) {
		return nil, apperror.NotFound("collection member", itemID)
	}

	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("removing member: %w", err)
	}
	return s.view(ctx, c)
}

// AvailableItems lists the owner's games that are in none of their
// collections. Membership in excludeCollectionID does not count, so while
// a collection is being edited its own games are still offered.
func (s *CollectionService) AvailableItems(ctx context.Context, ownerEmail, excludeCollectionID string) ([]model.Item, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	items, err := s.items.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	collections, err := s.collections.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	taken := map[string]bool{}
	for _, c := range collections {
		if c.ID == excludeCollectionID {
			continue
		}
		for _, m := range c.Members {
			taken[m.ItemID] = true
		}
	}

	available := []model.Item{}
	for _, item := range items {
		if !taken[item.ID] {
			available = append(available, item)
		}
	}
	return available, nil
}

// AddMedia uploads the file to the media host under
// "collection_<id>_<unix millis>" and attaches the result.
func (s *CollectionService) AddMedia(ctx context.Context, id, ownerEmail string, up model.MediaUpload) (*model.CollectionView, error) {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return nil, err
	}
	if err := validateMediaType(up.Type); err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, apperror.ValidationFailed("file", "file is empty")
	}

	now := s.now().UTC()
	asset, err := s.host.Upload(ctx, media.UploadInput{
		Namespace:   fmt.Sprintf("collection_%s_%d", c.ID, now.UnixMilli()),
		Data:        up.Data,
		ContentType: up.ContentType,
		Type:        up.Type,
	})
	if err != nil {
		s.logger.Error("collection media upload failed",
			slog.String("id", c.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.External(mediaHostName, err)
	}

	c.Media = append(c.Media, model.MediaAttachment{
		URL:         asset.URL,
		Type:        asset.Type,
		HostAssetID: asset.ID,
		UploadedAt:  now,
	})
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("adding collection media: %w", err)
	}
	return s.view(ctx, c)
}

// RemoveMedia deletes the asset from the host and then detaches it. Unlike
// the catalog variant a missing attachment is NotFound, and a host failure
// fails the request with the record unchanged, so the call can be retried.
// An asset the host no longer has counts as deleted.
func (s *CollectionService) RemoveMedia(ctx context.Context, id, ownerEmail, hostAssetID string) (*model.CollectionView, error) {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return nil, err
	}

	i := slices.IndexFunc(c.Media, func(m model.MediaAttachment) bool {
		return m.HostAssetID == hostAssetID
	})
	if i < 0 {
		return nil, apperror.NotFound("media", hostAssetID)
	}

	if hostAssetID != model.FallbackAssetID {
		del := s.host.DeleteImage
		if c.Media[i].Type == model.MediaVideo {
			del = s.host.DeleteVideo
		}
		if err := del(ctx, hostAssetID); err != nil && !errors.Is(err, media.ErrAssetNotFound) {
			s.logger.Error("failed to delete collection media from host",
				slog.String("id", c.ID),
				slog.String("asset", hostAssetID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.External(mediaHostName, err)
		}
	}

	c.RemoveMedia(hostAssetID)
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("removing collection media: %w", err)
	}

	return s.view(ctx, c)
}

// Delete bulk-deletes the collection's media from the host and then the
// record. A host failure aborts the delete and is returned.
func (s *CollectionService) Delete(ctx context.Context, id, ownerEmail string) error {
	c, err := s.ownedBy(ctx, id, ownerEmail)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(c.Media))
	for _, m := range c.Media {
		if m.HostAssetID != "" && m.HostAssetID != model.FallbackAssetID {
			ids = append(ids, m.HostAssetID)
		}
	}
	if len(ids) > 0 {
		if err := s.host.DeleteAssets(ctx, ids); err != nil {
			s.logger.Error("failed to delete collection media",
				slog.String("id", c.ID),
				slog.String("error", err.Error()),
			)
			return apperror.External(mediaHostName, err)
		}
	}

	if err := s.collections.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	s.logger.Info("collection deleted", slog.String("id", c.ID), slog.Int("media", len(ids)))
	return nil
}

// ToggleLike likes or unlikes a public collection for likerEmail. Private
// collections cannot be liked, not even by their owner.
func (s *CollectionService) ToggleLike(ctx context.Context, id, likerEmail string) (*model.LikeResult, error) {
	liker, err := requireEmail(likerEmail)
	if err != nil {
		return nil, err
	}

	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic {
		return nil, apperror.AccessDenied("cannot like a private collection")
	}

	liked := c.ToggleLike(liker, s.now().UTC())
	if err := s.collections.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("toggling like: %w", err)
	}
	return &model.LikeResult{Liked: liked, LikeCount: len(c.Likes)}, nil
}

// ownedBy loads a collection for a write. Missing → NotFound, someone
// else's → AccessDenied.
func (s *CollectionService) ownedBy(ctx context.Context, id, ownerEmail string) (*model.Collection, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerEmail != owner {
		return nil, apperror.AccessDenied("you do not own this collection")
	}
	return c, nil
}

// checkItemOwner rejects ids of missing games and of other users' games
// alike, so the error does not reveal which ids exist.
func (s *CollectionService) checkItemOwner(ctx context.Context, itemID, owner string) error {
	item, err := s.items.GetByID(ctx, itemID)
	if errors.Is(err, apperror.ErrNotFound) || (err == nil && item.OwnerEmail != owner) {
		return apperror.ValidationFailed("itemId", fmt.Sprintf("item %s does not belong to you", itemID))
	}
	if err != nil {
		return fmt.Errorf("checking item %s: %w", itemID, err)
	}
	return nil
}

func (s *CollectionService) view(ctx context.Context, c *model.Collection) (*model.CollectionView, error) {
	views, err := s.views(ctx, []model.Collection{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views joins every member with its item summary in one repository call.
// Members whose game was deleted keep a nil Item.
func (s *CollectionService) views(ctx context.Context, list []model.Collection) ([]model.CollectionView, error) {
	var ids []string
	seen := map[string]bool{}
	for _, c := range list {
		for _, m := range c.Members {
			if !seen[m.ItemID] {
				seen[m.ItemID] = true
				ids = append(ids, m.ItemID)
			}
		}
	}

	summaries, err := s.items.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading member items: %w", err)
	}

	out := make([]model.CollectionView, 0, len(list))
	for _, c := range list {
		members := make([]model.MemberView, 0, len(c.Members))
		for _, m := range c.Members {
			mv := model.MemberView{ItemID: m.ItemID, AddedAt: m.AddedAt}
			if sum, ok := summaries[m.ItemID]; ok {
				mv.Item = &sum
			}
			members = append(members, mv)
		}
		out = append(out, model.CollectionView{
			Collection: c,
			Members:    members,
			LikeCount:  len(c.Likes),
		})
	}
	return out, nil
}

func validateCollectionText(name, description string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "collection name is required")
	}
	if utf8.RuneCountInString(name) > MaxCollectionNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("collection name must be %d characters or less", MaxCollectionNameLength))
	}
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxCollectionDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxCollectionDescriptionLength))
	}
	return nil
}

// normalizeTags lower-cases and trims tags, dropping blanks and repeats.
func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
