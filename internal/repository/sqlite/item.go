package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// compile-time check that *ItemStore implements repository.ItemRepository
var _ repository.ItemRepository = (*ItemStore)(nil)

// ItemStore persists cataloged games in the items table.
type ItemStore struct {
	conn *sql.DB
}

const itemColumns = `id, owner_email, title, platform, status, progress, hours_played, rating,
	description, developer, publisher, personal_notes, release_date, genres, play_mode,
	owned, image_url, video_url, media, created_at, updated_at`

// Create inserts a new item. The store assigns ID and timestamps; the
// caller's struct is updated in place.
func (s *ItemStore) Create(ctx context.Context, item *model.Item) error {
	item.ID = xid.New().String()
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	args, err := itemArgs(item)
	if err != nil {
		return fmt.Errorf("sqlite: encoding item: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating item: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no row matches.
func (s *ItemStore) GetByID(ctx context.Context, id string) (*model.Item, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", id)
		}
		return nil, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}
	return item, nil
}

// GetByTitle finds the owner's item with exactly this title.
func (s *ItemStore) GetByTitle(ctx context.Context, ownerEmail, title string) (*model.Item, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE owner_email = ? AND title = ?
		 LIMIT 1`,
		ownerEmail, title,
	)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", title)
		}
		return nil, fmt.Errorf("sqlite: getting item by title: %w", err)
	}
	return item, nil
}

// ListByOwner returns every item of one owner, newest first. The xid
// tiebreak keeps the order stable for items created in the same instant.
func (s *ItemStore) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Item, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE owner_email = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}
	return items, nil
}

// Update rewrites the whole row, embedded media included.
func (s *ItemStore) Update(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now().UTC()

	genres, err := encodeList(item.Genres)
	if err != nil {
		return fmt.Errorf("sqlite: encoding genres: %w", err)
	}
	playMode, err := encodeList(item.PlayMode)
	if err != nil {
		return fmt.Errorf("sqlite: encoding play mode: %w", err)
	}
	media, err := encodeList(item.MediaAttachments)
	if err != nil {
		return fmt.Errorf("sqlite: encoding media: %w", err)
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE items SET
			title = ?, platform = ?, status = ?, progress = ?, hours_played = ?, rating = ?,
			description = ?, developer = ?, publisher = ?, personal_notes = ?, release_date = ?,
			genres = ?, play_mode = ?, owned = ?, image_url = ?, video_url = ?, media = ?,
			updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Platform, string(item.Status), item.Progress, item.HoursPlayed, item.Rating,
		item.Description, item.Developer, item.Publisher, item.PersonalNotes, item.ReleaseDate,
		genres, playMode, item.Owned, item.ImageURL, item.VideoURL, media,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %s: %w", item.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("item", item.ID)
	}
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("item", id)
	}
	return nil
}

// Summaries loads the display projection for a set of ids in one query.
// The ids travel as a single JSON array parameter and are expanded with
// json_each, so the statement text does not depend on len(ids).
func (s *ItemStore) Summaries(ctx context.Context, ids []string) (map[string]model.ItemSummary, error) {
	out := make(map[string]model.ItemSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding ids: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, platform, status, genres, rating, description, image_url
		 FROM items
		 WHERE id IN (SELECT value FROM json_each(?))`,
		string(idsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading item summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sum    model.ItemSummary
			status string
			genres string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Platform, &status, &genres,
			&sum.Rating, &sum.Description, &sum.ImageURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item summary: %w", err)
		}
		sum.Status = model.ItemStatus(status)
		if sum.Genres, err = decodeList[string](genres); err != nil {
			return nil, fmt.Errorf("sqlite: decoding genres: %w", err)
		}
		out[sum.ID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating item summaries: %w", err)
	}
	return out, nil
}

// itemArgs returns the column values in itemColumns order.
func itemArgs(item *model.Item) ([]any, error) {
	genres, err := encodeList(item.Genres)
	if err != nil {
		return nil, err
	}
	playMode, err := encodeList(item.PlayMode)
	if err != nil {
		return nil, err
	}
	media, err := encodeList(item.MediaAttachments)
	if err != nil {
		return nil, err
	}
	return []any{
		item.ID, item.OwnerEmail, item.Title, item.Platform, string(item.Status),
		item.Progress, item.HoursPlayed, item.Rating,
		item.Description, item.Developer, item.Publisher, item.PersonalNotes,
		item.ReleaseDate, genres, playMode,
		item.Owned, item.ImageURL, item.VideoURL, media,
		item.CreatedAt, item.UpdatedAt,
	}, nil
}

func scanItem(row scanner) (*model.Item, error) {
	var (
		item                    model.Item
		status                  string
		genres, playMode, media string
	)
	err := row.Scan(
		&item.ID, &item.OwnerEmail, &item.Title, &item.Platform, &status,
		&item.Progress, &item.HoursPlayed, &item.Rating,
		&item.Description, &item.Developer, &item.Publisher, &item.PersonalNotes,
		&item.ReleaseDate, &genres, &playMode,
		&item.Owned, &item.ImageURL, &item.VideoURL, &media,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemStatus(status)
	if item.Genres, err = decodeList[string](genres); err != nil {
		return nil, fmt.Errorf("decoding genres: %w", err)
	}
	if item.PlayMode, err = decodeList[string](playMode); err != nil {
		return nil, fmt.Errorf("decoding play mode: %w", err)
	}
	if item.MediaAttachments, err = decodeList[model.MediaAttachment](media); err != nil {
		return nil, fmt.Errorf("decoding media: %w", err)
	}
	return &item, nil
}
