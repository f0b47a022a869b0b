package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// PlatformService keeps per-user counts of games added per platform.
//
// KNOWN GAP:
// Increment is its own request, sent by the client after an item create
// succeeds. If it never arrives the tally under-counts, and deleting an
// item never decrements it. Tallies are a rough "platforms I play on"
// hint, not an inventory.
type PlatformService struct {
	platforms repository.PlatformRepository
	logger    *slog.Logger
}

func NewPlatformService(platforms repository.PlatformRepository, logger *slog.Logger) *PlatformService {
	return &PlatformService{platforms: platforms, logger: logger}
}

// Increment creates the (name, owner) tally at 1 or adds one to it.
func (s *PlatformService) Increment(ctx context.Context, name, ownerEmail string) (*model.PlatformTally, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "platform name is required")
	}

	tally, err := s.platforms.UpsertIncrement(ctx, name, owner)
	if err != nil {
		s.logger.Error("failed to increment platform tally",
			slog.String("platform", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("incrementing platform: %w", err)
	}
	return tally, nil
}

// List returns the owner's tallies, most used first.
func (s *PlatformService) List(ctx context.Context, ownerEmail string) ([]model.PlatformTally, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	list, err := s.platforms.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing platforms: %w", err)
	}
	return list, nil
}

// Search filters the owner's tallies by a case-insensitive name
// substring. An empty query behaves like List.
func (s *PlatformService) Search(ctx context.Context, ownerEmail, query string) ([]model.PlatformTally, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, ownerEmail)
	}

	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	list, err := s.platforms.SearchByName(ctx, owner, query)
	if err != nil {
		return nil, fmt.Errorf("searching platforms: %w", err)
	}
	return list, nil
}

// Get returns one of the owner's tallies.
func (s *PlatformService) Get(ctx context.Context, id, ownerEmail string) (*model.PlatformTally, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, id, owner)
}

// Update renames a tally or corrects its count. Renaming onto a name the
// owner already tracks is a duplicate.
func (s *PlatformService) Update(ctx context.Context, id, ownerEmail string, patch model.PlatformPatch) (*model.PlatformTally, error) {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	p, err := s.owned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "platform name is required")
		}
		p.Name = name
	}
	if patch.Count != nil {
		if *patch.Count < 0 {
			return nil, apperror.ValidationFailed("count", "count must not be negative")
		}
		p.Count = *patch.Count
	}

	if err := s.platforms.Update(ctx, p); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating platform: %w", err)
	}
	s.logger.Info("platform tally updated", slog.String("id", id), slog.String("name", p.Name), slog.Int("count", p.Count))
	return p, nil
}

// Delete removes one of the owner's tallies. Someone else's tally is
// reported as NotFound.
func (s *PlatformService) Delete(ctx context.Context, id, ownerEmail string) error {
	owner, err := requireEmail(ownerEmail)
	if err != nil {
		return err
	}

	p, err := s.owned(ctx, id, owner)
	if err != nil {
		return err
	}

	if err := s.platforms.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting platform: %w", err)
	}
	s.logger.Info("platform tally deleted", slog.String("id", id), slog.String("name", p.Name))
	return nil
}

func (s *PlatformService) owned(ctx context.Context, id, owner string) (*model.PlatformTally, error) {
	p, err := s.platforms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerEmail != owner {
		return nil, apperror.NotFound("platform", id)
	}
	return p, nil
}
