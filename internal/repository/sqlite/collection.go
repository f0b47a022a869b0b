package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// compile-time check that *CollectionStore implements repository.CollectionRepository
var _ repository.CollectionRepository = (*CollectionStore)(nil)

// CollectionStore persists collections. Members, media, tags and likes are
// JSON columns on the collection row.
type CollectionStore struct {
	conn *sql.DB
}

const collectionColumns = `id, owner_email, name, description, members, media, tags,
	is_public, views, likes, created_at, updated_at`

// searchFilter matches ?2 against name, description or any tag. ?1 is the
// publicOnly flag; when it is 0 the visibility check is skipped.
const searchFilter = `(?1 = 0 OR is_public = 1) AND (
	lower(name) LIKE lower(?2) ESCAPE '\'
	OR lower(description) LIKE lower(?2) ESCAPE '\'
	OR EXISTS (SELECT 1 FROM json_each(collections.tags) WHERE lower(value) LIKE lower(?2) ESCAPE '\')
)`

func (s *CollectionStore) Create(ctx context.Context, c *model.Collection) error {
	c.ID = xid.New().String()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	members, media, tags, likes, err := encodeCollectionLists(c)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO collections (`+collectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerEmail, c.Name, c.Description, members, media, tags,
		c.IsPublic, c.Views, likes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating collection: %w", err)
	}
	return nil
}

func (s *CollectionStore) GetByID(ctx context.Context, id string) (*model.Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)

	c, err := scanCollection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, fmt.Errorf("sqlite: getting collection %s: %w", id, err)
	}
	return c, nil
}

// ListByOwner returns the owner's collections, most recently updated first.
func (s *CollectionStore) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Collection, error) {
	return s.query(ctx,
		`SELECT `+collectionColumns+` FROM collections
		 WHERE owner_email = ?
		 ORDER BY updated_at DESC, id DESC`,
		ownerEmail,
	)
}

// ListPublic returns one page of public collections, newest first, and the
// total number of public collections.
func (s *CollectionStore) ListPublic(ctx context.Context, opts repository.ListOptions) ([]model.Collection, int, error) {
	var total int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE is_public = 1`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting public collections: %w", err)
	}

	records, err := s.query(ctx,
		`SELECT `+collectionColumns+` FROM collections
		 WHERE is_public = 1
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Search does a case-insensitive substring match over name, description
// and tags. Results are newest first.
func (s *CollectionStore) Search(ctx context.Context, query string, publicOnly bool, opts repository.ListOptions) ([]model.Collection, int, error) {
	pattern := likePattern(query)

	var total int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE `+searchFilter,
		publicOnly, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting search results: %w", err)
	}

	records, err := s.query(ctx,
		`SELECT `+collectionColumns+` FROM collections
		 WHERE `+searchFilter+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?3 OFFSET ?4`,
		publicOnly, pattern, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Update rewrites every mutable column. Views is left alone so a
// concurrent IncrementViews is not overwritten by a stale read.
func (s *CollectionStore) Update(ctx context.Context, c *model.Collection) error {
	c.UpdatedAt = time.Now().UTC()

	members, media, tags, likes, err := encodeCollectionLists(c)
	if err != nil {
		return err
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE collections SET
			name = ?, description = ?, members = ?, media = ?, tags = ?,
			is_public = ?, likes = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Description, members, media, tags,
		c.IsPublic, likes, c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating collection %s: %w", c.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("collection", c.ID)
	}
	return nil
}

// IncrementViews bumps the counter in place without touching updated_at.
func (s *CollectionStore) IncrementViews(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE collections SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views of %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("collection", id)
	}
	return nil
}

func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting collection %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("collection", id)
	}
	return nil
}

func (s *CollectionStore) query(ctx context.Context, q string, args ...any) ([]model.Collection, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing collections: %w", err)
	}
	defer rows.Close()

	out := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collections: %w", err)
	}
	return out, nil
}

func encodeCollectionLists(c *model.Collection) (members, media, tags, likes string, err error) {
	if members, err = encodeList(c.Members); err != nil {
		return "", "", "", "", fmt.Errorf("sqlite: encoding members: %w", err)
	}
	if media, err = encodeList(c.Media); err != nil {
		return "", "", "", "", fmt.Errorf("sqlite: encoding media: %w", err)
	}
	if tags, err = encodeList(c.Tags); err != nil {
		return "", "", "", "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	if likes, err = encodeList(c.Likes); err != nil {
		return "", "", "", "", fmt.Errorf("sqlite: encoding likes: %w", err)
	}
	return members, media, tags, likes, nil
}

func scanCollection(row scanner) (*model.Collection, error) {
	var (
		c                          model.Collection
		members, media, tags, likes string
	)
	err := row.Scan(
		&c.ID, &c.OwnerEmail, &c.Name, &c.Description, &members, &media, &tags,
		&c.IsPublic, &c.Views, &likes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Members, err = decodeList[model.CollectionMember](members); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	if c.Media, err = decodeList[model.MediaAttachment](media); err != nil {
		return nil, fmt.Errorf("decoding media: %w", err)
	}
	if c.Tags, err = decodeList[string](tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if c.Likes, err = decodeList[model.CollectionLike](likes); err != nil {
		return nil, fmt.Errorf("decoding likes: %w", err)
	}
	return &c, nil
}
