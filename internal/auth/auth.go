// Package auth gates the admin surface behind a shared credential.
//
// A successful login issues an HS256 token that is persisted through a
// ports.TokenStore. Only the persisted token is accepted, so logging out
// anywhere (CLI or HTTP) revokes it everywhere the store is shared.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// Default credential shipped with the site.
const (
	DefaultUsername = "admin"
	DefaultPassword = "admin123"
)

const issuer = "folio"

// Config holds the credential and signing settings.
type Config struct {
	Username string
	Password string

	// Secret signs tokens. When empty a key is derived from the credential,
	// so changing the password revokes old tokens.
	Secret string

	Now func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Authenticator logs the admin in and out and checks bearer tokens.
type Authenticator struct {
	cfg    Config
	key    []byte
	store  ports.TokenStore
	logger ports.Logger

	mu     sync.RWMutex
	token  string
	loaded bool
}

// New creates an authenticator over store.
func New(cfg Config, store ports.TokenStore, logger ports.Logger) *Authenticator {
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	if cfg.Password == "" {
		cfg.Password = DefaultPassword
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	key := []byte(cfg.Secret)
	if len(key) == 0 {
		sum := sha256.Sum256([]byte(issuer + ":" + cfg.Username + ":" + cfg.Password))
		key = sum[:]
	}
	return &Authenticator{cfg: cfg, key: key, store: store, logger: logger.With(ports.Component("auth"))}
}

// Login checks the credential and persists a fresh token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !userOK || !passOK {
		a.logger.Warn("admin login rejected", ports.String("username", username))
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	now := a.cfg.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := a.store.Save(ctx, signed); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	a.mu.Lock()
	a.token, a.loaded = signed, true
	a.mu.Unlock()

	a.logger.Info("admin logged in", ports.String("username", username))
	return signed, nil
}

// Logout removes the persisted token.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	a.mu.Lock()
	a.token, a.loaded = "", true
	a.mu.Unlock()
	a.logger.Info("admin logged out")
	return nil
}

// Token returns the persisted token, or "" when logged out.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	tok, loaded := a.token, a.loaded
	a.mu.RUnlock()
	if loaded {
		return tok, nil
	}
	if err := a.Reload(ctx); err != nil {
		return "", err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token, nil
}

// IsAuthenticated reports whether a valid token is persisted.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	tok, err := a.Token(ctx)
	if err != nil || tok == "" {
		return false
	}
	return a.Verify(ctx, tok) == nil
}

// Verify accepts token only if it is well signed and is the persisted one.
func (a *Authenticator) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return fmt.Errorf("parse token: %w: %w", domain.ErrUnauthorized, err)
	}

	current, err := a.Token(ctx)
	if err != nil {
		return err
	}
	if current == "" || subtle.ConstantTimeCompare([]byte(current), []byte(token)) != 1 {
		return fmt.Errorf("token revoked: %w", domain.ErrUnauthorized)
	}
	return nil
}

// Reload re-reads the persisted token. The token watcher calls it when the
// token file changes underneath the process.
func (a *Authenticator) Reload(ctx context.Context) error {
	tok, err := a.store.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load token: %w", err)
	}
	a.mu.Lock()
	a.token, a.loaded = tok, true
	a.mu.Unlock()
	return nil
}
