// Package tokenx stores and serves the bearer token the transport attaches
// to backend requests. The engine itself never negotiates sessions; it only
// needs a token source it can ask right before connecting.
package tokenx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Source serves the current bearer token. Implementations may read from
// memory, disk, or a refresh flow; callers treat the token as opaque.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed in-memory token.
type Static string

// Token implements Source.
func (s Static) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", errorRegistry.New(ErrNoToken)
	}
	return string(s), nil
}

// FileStore persists one token on disk. It refuses to serve a token whose
// JWT expiry (when present) has passed, so a stale token fails fast instead
// of producing a mid-stream 401.
type FileStore struct {
	path   string
	leeway time.Duration
}

// NewFileStore creates a store at path. Parent directories are created on
// first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, leeway: 30 * time.Second}
}

// Save writes the token with owner-only permissions.
func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errorRegistry.NewWithCause(ErrStoreFailed, err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return errorRegistry.NewWithCause(ErrStoreFailed, err)
	}
	return nil
}

// Clear removes the stored token. Clearing a missing token is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errorRegistry.NewWithCause(ErrStoreFailed, err)
	}
	return nil
}

// Token implements Source.
func (f *FileStore) Token(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errorRegistry.New(ErrNoToken)
		}
		return "", errorRegistry.NewWithCause(ErrStoreFailed, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errorRegistry.New(ErrNoToken)
	}
	if Expired(token, f.leeway) {
		return "", errorRegistry.New(ErrTokenExpired)
	}
	return token, nil
}

// Expired reports whether token is a JWT whose exp claim has passed, with
// the given leeway subtracted. Opaque (non-JWT) tokens and JWTs without an
// exp claim are never considered expired; the backend is the authority.
func Expired(token string, leeway time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().Add(leeway).After(exp.Time)
}
