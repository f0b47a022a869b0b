package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// compile-time check that *PlatformStore implements repository.PlatformRepository
var _ repository.PlatformRepository = (*PlatformStore)(nil)

type PlatformStore struct {
	conn *sql.DB
}

// UpsertIncrement creates the (name, owner) tally at 1 or adds one to it.
//
// ATOMIC UPSERT:
// The unique index on (name, owner_email) turns a concurrent second insert
// into the DO UPDATE branch, so N concurrent calls always end at count N.
// A read-then-write in Go could lose increments.
func (s *PlatformStore) UpsertIncrement(ctx context.Context, name, ownerEmail string) (*model.PlatformTally, error) {
	var p model.PlatformTally

	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO platforms (id, name, owner_email, count, created_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(name, owner_email) DO UPDATE SET count = count + 1
		 RETURNING id, name, owner_email, count, created_at`,
		xid.New().String(), name, ownerEmail, time.Now().UTC(),
	).Scan(&p.ID, &p.Name, &p.OwnerEmail, &p.Count, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: incrementing platform %q: %w", name, err)
	}
	return &p, nil
}

// ListByOwner returns the owner's tallies, most used first.
func (s *PlatformStore) ListByOwner(ctx context.Context, ownerEmail string) ([]model.PlatformTally, error) {
	return s.query(ctx,
		`SELECT id, name, owner_email, count, created_at FROM platforms
		 WHERE owner_email = ?
		 ORDER BY count DESC, name ASC`,
		ownerEmail,
	)
}

// SearchByName matches query as a case-insensitive substring of the name.
func (s *PlatformStore) SearchByName(ctx context.Context, ownerEmail, query string) ([]model.PlatformTally, error) {
	return s.query(ctx,
		`SELECT id, name, owner_email, count, created_at FROM platforms
		 WHERE owner_email = ? AND lower(name) LIKE lower(?) ESCAPE '\'
		 ORDER BY count DESC, name ASC`,
		ownerEmail, likePattern(query),
	)
}

func (s *PlatformStore) GetByID(ctx context.Context, id string) (*model.PlatformTally, error) {
	var p model.PlatformTally
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, owner_email, count, created_at FROM platforms WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.OwnerEmail, &p.Count, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("platform", id)
		}
		return nil, fmt.Errorf("sqlite: getting platform %s: %w", id, err)
	}
	return &p, nil
}

func (s *PlatformStore) Update(ctx context.Context, p *model.PlatformTally) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE platforms SET name = ?, count = ? WHERE id = ?`,
		p.Name, p.Count, p.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Duplicate("platform", "name", p.Name)
		}
		return fmt.Errorf("sqlite: updating platform %s: %w", p.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("platform", p.ID)
	}
	return nil
}

func (s *PlatformStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM platforms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting platform %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("platform", id)
	}
	return nil
}

func (s *PlatformStore) query(ctx context.Context, q string, args ...any) ([]model.PlatformTally, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing platforms: %w", err)
	}
	defer rows.Close()

	out := []model.PlatformTally{}
	for rows.Next() {
		var p model.PlatformTally
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerEmail, &p.Count, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning platform row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating platforms: %w", err)
	}
	return out, nil
}
