package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/auth"
	"github.com/sakif/game-library/internal/model"
	"github.com/sakif/game-library/internal/repository"
)

// AuthService turns a GitHub profile into a local user and a session
// token. Handlers own cookies and redirects; this owns the rules.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ auth.TokenService
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// AuthResult bundles the user and their freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginWithGitHub upserts the user keyed by GitHub id and issues a token
// carrying their normalized email.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	email, err := validEmail(gh.Email)
	if err != nil {
		return nil, apperror.Unauthorized("your GitHub account has no usable email address")
	}

	user := &model.User{
		GitHubID:  gh.ID,
		Login:     gh.Login,
		Email:     email,
		AvatarURL: gh.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Me returns the profile behind the requester email.
func (s *AuthService) Me(ctx context.Context, email string) (*model.User, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return user, nil
}
