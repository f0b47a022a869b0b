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

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore keeps the GitHub profiles of people who have signed in.
type UserStore struct {
	conn *sql.DB
}

// Upsert inserts the user, or refreshes login/email/avatar when the GitHub
// account is already known. ID and CreatedAt of an existing row are kept
// and copied back into user.
//
// ON CONFLICT ... RETURNING does the lookup and the write in one statement,
// so two concurrent first logins for the same account cannot both insert.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
			login = excluded.login,
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
		 RETURNING id, created_at, updated_at`,
		xid.New().String(), user.GitHubID, user.Login, user.Email, user.AvatarURL, now, now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// GetByEmail returns the most recently updated profile with this email.
// Returns apperror.ErrNotFound if nobody signed in with it.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, created_at, updated_at
		 FROM users WHERE email = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		email,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &u, nil
}
