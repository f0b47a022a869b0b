package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
)

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUserUpsert_NewUser(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		GitHubID:  55555,
		Login:     "octo",
		Email:     "octo@example.com",
		AvatarURL: "https://example.com/octo.png",
	}
	if err := u.Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Upsert() did not set user.CreatedAt")
	}

	found, err := u.GetByEmail(context.Background(), "octo@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.ID != user.ID || found.Login != "octo" {
		t.Errorf("found = %+v, want id %q login octo", found, user.ID)
	}
}

func TestUserUpsert_ExistingUser_KeepsIDAndCreatedAt(t *testing.T) {
	u := newTestDB(t).Users()

	first := &model.User{GitHubID: 66666, Login: "old", Email: "old@example.com"}
	if err := u.Upsert(context.Background(), first); err != nil {
		t.Fatalf("Upsert() first login: %v", err)
	}

	second := &model.User{GitHubID: 66666, Login: "new", Email: "new@example.com"}
	if err := u.Upsert(context.Background(), second); err != nil {
		t.Fatalf("Upsert() second login: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Upsert() changed user ID: got %q, want %q", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Upsert() changed CreatedAt: got %v, want %v", second.CreatedAt, first.CreatedAt)
	}

	found, err := u.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() after second upsert: %v", err)
	}
	if found.Login != "new" {
		t.Errorf("Login = %q, want new", found.Login)
	}
	if _, err := u.GetByEmail(context.Background(), "old@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail(old) error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}
