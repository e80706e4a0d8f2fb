package index

import (
	"context"
	"testing"
	"time"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/overlay"
	"github.com/jackfish212/remotefs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopRemote struct{}

func (nopRemote) List(context.Context, string) ([]types.RemoteEntry, error) { return nil, nil }
func (nopRemote) ReadBytes(context.Context, string) ([]byte, error) {
	return nil, types.ErrNotFound
}
func (nopRemote) Mkdir(context.Context, string, string) error { return nil }
func (nopRemote) Put(context.Context, string, []byte, string) error { return nil }
func (nopRemote) Remove(context.Context, string, string) error { return nil }
func (nopRemote) Rename(context.Context, string, string, string) error { return nil }

func TestMemoryHook(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.OnCreated(ctx, "/docs"))
	require.NoError(t, m.OnCreated(ctx, "/docs/Report.md"))
	require.NoError(t, m.OnCreated(ctx, "/docs/sub/notes.txt"))
	require.NoError(t, m.OnCreated(ctx, "/docs/Report.md"))
	assert.Equal(t, 3, m.Len())

	assert.Equal(t, []string{"/docs/Report.md"}, m.Search("report"))

	require.NoError(t, m.OnRenamed(ctx, "/docs", "/archive"))
	assert.Equal(t, []string{"/archive/sub/notes.txt"}, m.Search("notes"))
	assert.Empty(t, m.Search("docs"))

	require.NoError(t, m.OnDeleted(ctx, "/archive/sub"))
	assert.Empty(t, m.Search("notes"))
	assert.Equal(t, 2, m.Len())
}

func TestMemoryFollowsFacade(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	f := remotefs.New(nopRemote{}, overlay.New())
	require.NoError(t, m.Register(ctx, f))

	require.NoError(t, f.WriteFile(ctx, "/a/plan.txt", []byte("x")))
	require.NoError(t, f.CreateDirectory(ctx, "/b"))
	assert.Eventually(t, func() bool { return m.Len() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.Delete(ctx, "/a/plan.txt"))
	assert.Eventually(t, func() bool { return len(m.Search("plan")) == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Unregister(ctx, f))
	m.Wait()
	require.NoError(t, f.CreateDirectory(ctx, "/c"))
	assert.Empty(t, m.Search("c"))
}

func TestMemoryStopsWhenFacadeCloses(t *testing.T) {
	m := NewMemory()
	f := remotefs.New(nopRemote{}, overlay.New())
	require.NoError(t, m.Register(context.Background(), f))
	require.NoError(t, f.Close())

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follower did not exit after Facade.Close")
	}
}
