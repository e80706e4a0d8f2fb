package connection

import (
	"context"
	"testing"

	"github.com/jackfish212/remotefs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddGet(t *testing.T) {
	r := NewRegistry()
	a, _, _ := newTestManager(fixedProbe(true, nil))
	b, _, _ := newTestManager(fixedProbe(true, nil))

	require.NoError(t, r.Add("ws-b", b))
	require.NoError(t, r.Add("ws-a", a))
	assert.ErrorIs(t, r.Add("ws-a", b), ErrAlreadyRegistered)
	assert.Error(t, r.Add("  ", a))

	got, ok := r.Get("ws-a")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"ws-a", "ws-b"}, r.IDs())
}

func TestRegistryRemoveClosesSession(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	m, _, _ := newTestManager(fixedProbe(true, nil))
	require.NoError(t, m.Connect(ctx, "https://files.example.com", "ada", "pw", types.ProtocolHTTP))
	f := m.Facade()
	require.NoError(t, r.Add("ws", m))

	require.NoError(t, r.Remove(ctx, "ws"))
	assert.True(t, f.Closed())
	assert.Empty(t, r.IDs())
	assert.Error(t, r.Remove(ctx, "ws"))
}
