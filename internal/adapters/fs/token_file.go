package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultTokenFileName is the file the admin token is kept in.
const DefaultTokenFileName = "admin_token.json"

type tokenFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// TokenFile implements ports.TokenStore using a JSON file.
type TokenFile struct {
	path string
}

// NewTokenFile creates a TokenFile at path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Load returns the stored token.
// Returns "" and nil error if no token file exists.
func (f *TokenFile) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parse %s: %w", f.path, err)
	}
	return tf.Token, nil
}

// Save persists the token atomically.
func (f *TokenFile) Save(ctx context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tokenFile{Token: token, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(f.path, strings.NewReader(string(data))); err != nil {
		return err
	}
	// atomic.WriteFile keeps the mode of the file it replaces; new files need it set.
	return os.Chmod(f.path, 0o600)
}

// Delete removes the token file.
func (f *TokenFile) Delete(ctx context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path returns the full path to the token file.
func (f *TokenFile) Path() string {
	return f.path
}
