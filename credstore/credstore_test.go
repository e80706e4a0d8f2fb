package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackfish212/remotefs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = types.Credentials{
	BaseURL:  "https://files.example.com",
	Username: "alice",
	Password: "pw1",
	Protocol: types.ProtocolHTTP,
	Project:  "alpha",
}

var bob = types.Credentials{
	BaseURL:  "https://dav.example.com",
	Username: "bob",
	Password: "pw2",
	Protocol: types.ProtocolWebDAV,
}

type brokenStore struct{ name string }

func (b brokenStore) Name() string { return b.name }
func (b brokenStore) Load(context.Context) (types.Credentials, bool, error) {
	return types.Credentials{}, false, errors.New("store unreadable")
}
func (b brokenStore) Save(context.Context, types.Credentials) error {
	return errors.New("store unwritable")
}
func (b brokenStore) Clear(context.Context) error { return errors.New("store unwritable") }

func TestReconcileBothEmpty(t *testing.T) {
	ctx := context.Background()
	_, ok, err := Reconcile(ctx, NewMemoryStore("secure"), NewMemoryStore("state"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconcileBackfillsFallback(t *testing.T) {
	ctx := context.Background()
	secure, state := NewMemoryStore("secure"), NewMemoryStore("state")
	require.NoError(t, secure.Save(ctx, alice))

	got, ok, err := Reconcile(ctx, secure, state)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	back, ok, _ := state.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, alice, back)
}

func TestReconcileBackfillsSecure(t *testing.T) {
	ctx := context.Background()
	secure, state := NewMemoryStore("secure"), NewMemoryStore("state")
	require.NoError(t, state.Save(ctx, bob))

	got, ok, err := Reconcile(ctx, secure, state)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bob, got)

	back, ok, _ := secure.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, bob, back)
}

func TestReconcilePrefersSecureWithoutMerging(t *testing.T) {
	ctx := context.Background()
	secure, state := NewMemoryStore("secure"), NewMemoryStore("state")
	require.NoError(t, secure.Save(ctx, alice))
	require.NoError(t, state.Save(ctx, bob))

	got, ok, err := Reconcile(ctx, secure, state)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	untouched, _, _ := state.Load(ctx)
	assert.Equal(t, bob, untouched, "neither store is rewritten when both hold values")
}

func TestReconcileToleratesOneBrokenStore(t *testing.T) {
	ctx := context.Background()
	state := NewMemoryStore("state")
	require.NoError(t, state.Save(ctx, bob))

	got, ok, err := Reconcile(ctx, brokenStore{"secure"}, state)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bob, got)
}

func TestReconcileBothBroken(t *testing.T) {
	_, ok, err := Reconcile(context.Background(), brokenStore{"secure"}, brokenStore{"state"})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSaveAllAndClearAll(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemoryStore("a"), NewMemoryStore("b")
	require.NoError(t, SaveAll(ctx, alice, a, b))
	for _, s := range []Store{a, b} {
		_, ok, _ := s.Load(ctx)
		assert.True(t, ok, s.Name())
	}
	require.NoError(t, ClearAll(ctx, a, b))
	for _, s := range []Store{a, b} {
		_, ok, _ := s.Load(ctx)
		assert.False(t, ok, s.Name())
	}

	err := SaveAll(ctx, alice, a, brokenStore{"bad"})
	assert.ErrorContains(t, err, "bad")
	_, ok, _ := a.Load(ctx)
	assert.True(t, ok, "healthy stores are still written")
}

// ─── StateStore ───

func TestStateStoreRoundTripPreservesOtherKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","remotefs":{"other":1}}`), 0o600))

	s := NewStateStore(path, "")
	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, alice))
	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)
	assert.Contains(t, string(data), `"other": 1`)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), `"theme": "dark"`)
}

func TestStateStoreMissingFile(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "nested", "state.json"), "session")
	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(context.Background(), bob))
	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bob, got)
}

func TestStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, _, err := NewStateStore(path, "").Load(context.Background())
	assert.Error(t, err)
}

// ─── SecureStore ───

func TestSecureStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "secrets.db")

	s, err := OpenSecureStore(db, []byte("passphrase"))
	require.NoError(t, err)
	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, alice))
	require.NoError(t, s.Save(ctx, bob))
	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bob, got)
	require.NoError(t, s.Close())

	reopened, err := OpenSecureStore(db, []byte("passphrase"))
	require.NoError(t, err)
	defer reopened.Close()
	got, ok, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bob, got)

	require.NoError(t, reopened.Clear(ctx))
	_, ok, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecureStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "secrets.db")

	s, err := OpenSecureStore(db, []byte("right"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, alice))
	require.NoError(t, s.Close())

	wrong, err := OpenSecureStore(db, []byte("wrong"))
	require.NoError(t, err)
	defer wrong.Close()
	_, _, err = wrong.Load(ctx)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestSecureStoreDoesNotStorePlaintext(t *testing.T) {
	db := filepath.Join(t.TempDir(), "secrets.db")
	s, err := OpenSecureStore(db, []byte("k"))
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), alice))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(db)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pw1")
}

func TestLoadOrCreateKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")
	k1, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.Len(t, k1, 64)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	k2, err := LoadOrCreateKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}
