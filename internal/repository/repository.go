// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage implements them; service tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/game-library/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ItemRepository stores cataloged games. Every lookup except GetByID and
// Summaries is scoped by owner email.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	GetByTitle(ctx context.Context, ownerEmail, title string) (*model.Item, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.Item, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string) error
	// Summaries returns the read projection for each id that still exists.
	Summaries(ctx context.Context, ids []string) (map[string]model.ItemSummary, error)
}

// CollectionRepository stores collections with their embedded members,
// media and likes.
type CollectionRepository interface {
	Create(ctx context.Context, c *model.Collection) error
	GetByID(ctx context.Context, id string) (*model.Collection, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.Collection, error)
	ListPublic(ctx context.Context, opts ListOptions) ([]model.Collection, int, error)
	Search(ctx context.Context, query string, publicOnly bool, opts ListOptions) ([]model.Collection, int, error)
	Update(ctx context.Context, c *model.Collection) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PlatformRepository stores per-user platform tallies.
type PlatformRepository interface {
	// UpsertIncrement creates the tally at 1 or bumps it by one, atomically.
	UpsertIncrement(ctx context.Context, name, ownerEmail string) (*model.PlatformTally, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.PlatformTally, error)
	SearchByName(ctx context.Context, ownerEmail, query string) ([]model.PlatformTally, error)
	GetByID(ctx context.Context, id string) (*model.PlatformTally, error)
	// Update writes Name and Count. A name the owner already uses is ErrDuplicate.
	Update(ctx context.Context, p *model.PlatformTally) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores GitHub sign-in profiles.
type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
