package ports

import "context"

// TokenStore persists the admin token locally.
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored token atomically.
	Save(ctx context.Context, token string) error

	// Delete removes the stored token. Deleting a missing token is not an error.
	Delete(ctx context.Context) error
}
