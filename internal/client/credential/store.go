// Package credential persists the client's bearer credential: the token, the
// user record it was issued for and the role copied out of that record.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

// Persisted key names. Other clients of the same storage depend on them.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyRole  = "role"
)

var keys = []string{KeyToken, KeyUser, KeyRole}

var (
	// ErrCorrupt is returned by a Backend whose underlying medium cannot be decoded.
	ErrCorrupt = errors.New("credential storage corrupted")

	ErrEmptyToken  = errors.New("credential token is empty")
	ErrInvalidRole = errors.New("credential user has an unknown role")
)

// User is the account record returned by the server at login.
type User struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// Credential is one complete, consistent session.
type Credential struct {
	Token string
	User  User
	Role  domain.Role
}

// Backend is a flat string key-value medium.
type Backend interface {
	// Read returns the values present for keys. Missing keys are omitted.
	Read(ctx context.Context, keys []string) (map[string]string, error)
	// Write stores every pair in one step; readers never see a partial write.
	Write(ctx context.Context, kv map[string]string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys []string) error
}

// Store is the single entry point to the persisted credential.
type Store struct {
	backend Backend
	log     zerolog.Logger
}

func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{backend: backend, log: log}
}

// Save persists token and user as one unit, copying the role out of user.
func (s *Store) Save(ctx context.Context, token string, user User) error {
	if token == "" {
		return ErrEmptyToken
	}
	if !user.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("credential save: encode user: %w", err)
	}

	if err := s.backend.Write(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(raw),
		KeyRole:  string(user.Role),
	}); err != nil {
		return fmt.Errorf("credential save: %w", err)
	}
	return nil
}

// Get returns the stored credential. ok is false when nothing usable is
// stored. A partial or inconsistent credential is cleared and reported as
// absent; err is reserved for backend failures.
func (s *Store) Get(ctx context.Context) (Credential, bool, error) {
	kv, err := s.backend.Read(ctx, keys)
	if errors.Is(err, ErrCorrupt) {
		return Credential{}, false, s.discard(ctx, err.Error())
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("credential get: %w", err)
	}
	if len(kv) == 0 {
		return Credential{}, false, nil
	}

	token, hasToken := kv[KeyToken]
	rawUser, hasUser := kv[KeyUser]
	if !hasToken || !hasUser || token == "" {
		return Credential{}, false, s.discard(ctx, "partial credential")
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return Credential{}, false, s.discard(ctx, "unparsable user record")
	}
	if !user.Role.Valid() {
		return Credential{}, false, s.discard(ctx, "unknown role in user record")
	}
	if role := kv[KeyRole]; role != string(user.Role) {
		return Credential{}, false, s.discard(ctx, "role does not match user record")
	}

	return Credential{Token: token, User: user, Role: user.Role}, true, nil
}

// Token returns the current bearer token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	cred, ok, err := s.Get(ctx)
	if err != nil || !ok {
		return "", err
	}
	return cred.Token, nil
}

// Clear removes all credential keys. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, keys); err != nil {
		return fmt.Errorf("credential clear: %w", err)
	}
	return nil
}

func (s *Store) discard(ctx context.Context, reason string) error {
	s.log.Warn().Str("reason", reason).Msg("discarding stored credential")
	return s.Clear(ctx)
}
