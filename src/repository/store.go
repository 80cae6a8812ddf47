package repository

import (
	"context"
	"fmt"
	app "imghost/src/app"
	cfg "imghost/src/configuration"
	"strings"
)

// Store is the capability interface shared by all catalog backends. The
// backend is picked once at startup by NewStore; handlers only ever see this
// interface.
//
// AddImage uses get-or-create semantics for the owning user: uploading under
// an unseen username registers that username instead of failing.
type Store interface {
	// GetOrCreateUser returns the id of the named user, creating the record
	// with an empty password hash when it does not exist yet.
	GetOrCreateUser(ctx context.Context, username string) (int64, error)

	// Authenticate resolves the four login cases: unknown user with a
	// password is registered, known user with a password is verified against
	// the stored hash, a known user without a password passes as a returning
	// session, an unknown user without a password is ErrNotFound.
	Authenticate(ctx context.Context, username, password string) (app.User, error)

	// AddImage records one reference (object key or URL) for the user.
	AddImage(ctx context.Context, username, ref string) (int64, error)

	// ListImages returns the user's references newest first. An unknown
	// username yields an empty list, not an error. A non-empty category
	// keeps only references containing a "/category/" key segment.
	ListImages(ctx context.Context, username, category string) ([]string, error)

	// DeleteImage removes the catalog row matching the exact reference.
	// ErrNotFound when the user or the row is absent.
	DeleteImage(ctx context.Context, username, ref string) error

	// CategoryExists reports the id of the named category in the user's
	// scope, ok=false when either the user or the category is unknown.
	CategoryExists(ctx context.Context, username, name string) (id int64, ok bool, err error)

	// CreateCategory rejects duplicates within the user's scope without
	// creating a second row, otherwise creates the user if needed and the
	// category.
	CreateCategory(ctx context.Context, username, name string) (app.CategoryResult, error)

	// ListCategories returns the user's categories alphabetically; empty for
	// an unknown username.
	ListCategories(ctx context.Context, username string) ([]app.Category, error)

	// DeleteUser removes the user and cascades to their images and
	// categories. Administrative use only.
	DeleteUser(ctx context.Context, username string) error
}

// normalizeUsername trims surrounding whitespace and rejects usernames that
// are empty or whitespace-only.
func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrValidation)
	}
	return username, nil
}

// NewStore builds the catalog backend named by the configuration.
func NewStore(config *cfg.Properties) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config is not valid")
	}
	switch config.Store.Backend {
	case "sqlite":
		return NewSQLiteStore(config.DB.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}
}
