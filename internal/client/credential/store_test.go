package credential

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

func adminUser() User {
	return User{ID: "a1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}
}

func TestStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, zerolog.Nop())

	require.NoError(t, store.Save(ctx, "abc", adminUser()))

	cred, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", cred.Token)
	assert.Equal(t, domain.RoleAdmin, cred.Role)
	assert.Equal(t, adminUser().Email, cred.User.Email)

	kv, err := backend.Read(ctx, []string{KeyToken, KeyUser, KeyRole})
	require.NoError(t, err)
	assert.Equal(t, "abc", kv[KeyToken])
	assert.Equal(t, "admin", kv[KeyRole])
	assert.JSONEq(t, `{"id":"a1","name":"Ada","email":"ada@example.com","role":"admin","created_at":"0001-01-01T00:00:00Z"}`, kv[KeyUser])
}

func TestStore_EmptyIsAbsent(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())

	_, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	token, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestStore_SaveRejectsIncompleteInput(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())

	err := store.Save(context.Background(), "", adminUser())
	assert.ErrorIs(t, err, ErrEmptyToken)

	err = store.Save(context.Background(), "abc", User{ID: "u1", Role: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestStore_Idempotence(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, zerolog.Nop())

	require.NoError(t, store.Save(ctx, "abc", adminUser()))
	first, _, err := store.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "abc", adminUser()))
	second, _, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, backend.Len())
	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, backend.Len())
}

func TestStore_CorruptedCredentialFailsClosed(t *testing.T) {
	validUser, err := json.Marshal(adminUser())
	require.NoError(t, err)

	cases := map[string]map[string]string{
		"token without user":  {KeyToken: "abc", KeyRole: "admin"},
		"user without token":  {KeyUser: string(validUser), KeyRole: "admin"},
		"unparsable user":     {KeyToken: "abc", KeyUser: "{not json", KeyRole: "admin"},
		"role diverges":       {KeyToken: "abc", KeyUser: string(validUser), KeyRole: "user"},
		"role missing":        {KeyToken: "abc", KeyUser: string(validUser)},
		"unknown role":        {KeyToken: "abc", KeyUser: `{"id":"x","role":"root"}`, KeyRole: "root"},
		"empty token present": {KeyToken: "", KeyUser: string(validUser), KeyRole: "admin"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := NewMemoryBackend()
			require.NoError(t, backend.Write(ctx, kv))
			store := NewStore(backend, zerolog.Nop())

			_, ok, err := store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 0, backend.Len(), "corrupted keys must be cleared")

			token, err := store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)
		})
	}
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	require.NoError(t, NewStore(NewFileBackend(path), zerolog.Nop()).Save(ctx, "abc", adminUser()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A fresh backend on the same file plays the part of a reloaded client.
	cred, ok, err := NewStore(NewFileBackend(path), zerolog.Nop()).Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", cred.Token)
	assert.Equal(t, domain.RoleAdmin, cred.Role)
}

func TestFileBackend_ClearRemovesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewStore(NewFileBackend(path), zerolog.Nop())

	require.NoError(t, store.Save(ctx, "abc", adminUser()))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileBackend_CorruptFileIsDiscarded(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, ok, err := NewStore(NewFileBackend(path), zerolog.Nop()).Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
