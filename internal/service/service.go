// Package service holds the business rules of the game library.
//
// THE LAYERS:
//
//	Handler (HTTP)     → decodes requests, maps errors to status codes
//	Service (this)     → validates, checks ownership, orchestrates media
//	Repository (data)  → reads/writes rows
//
// Services take interfaces (repository.ItemRepository, MediaHost) and are
// wired with concrete types in cmd/server. Tests pass in-memory fakes.
//
// OWNERSHIP:
// Every operation receives the requester's email. It is normalized here
// (trim + lower-case) before it reaches a query, whatever the caller did.
package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/media"
	"github.com/sakif/game-library/internal/model"
)

// MediaHost is the external store for image and video binaries.
// *media.S3Host implements it.
type MediaHost interface {
	Upload(ctx context.Context, in media.UploadInput) (*media.Asset, error)
	// DeleteImage and DeleteVideo return media.ErrAssetNotFound when no
	// asset of that resource type exists under id.
	DeleteImage(ctx context.Context, id string) error
	DeleteVideo(ctx context.Context, id string) error
	DeleteAssets(ctx context.Context, ids []string) error
	AssetIDFromURL(url string) string
}

const mediaHostName = "media host"

// Pagination defaults for list and search endpoints. Pages are 1-indexed.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireEmail normalizes email and rejects it when empty.
func requireEmail(email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", apperror.ValidationFailed("ownerEmail", "owner email is required")
	}
	return email, nil
}

// validEmail additionally checks the local@domain.tld shape.
func validEmail(email string) (string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return "", err
	}
	if !emailPattern.MatchString(email) {
		return "", apperror.ValidationFailed("ownerEmail", "invalid email format")
	}
	return email, nil
}

// pageBounds clamps page/pageSize and returns the row offset.
func pageBounds(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func newPage[T any](records []T, total, page, pageSize int) *model.Page[T] {
	return &model.Page[T]{
		Records:     records,
		TotalPages:  (total + pageSize - 1) / pageSize,
		CurrentPage: page,
		TotalCount:  total,
	}
}

func validateMediaType(t model.MediaType) error {
	if !t.Valid() {
		return apperror.ValidationFailed("type", "media type must be image or video")
	}
	return nil
}
