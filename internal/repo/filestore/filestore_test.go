package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeworker/internal/repo"
)

func TestFileStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Create(ctx, "c1", []byte(`{"id":"c1"}`)))
	require.ErrorIs(t, s.Create(ctx, "c1", []byte(`{}`)), repo.ErrExists)

	// stray files are not checks
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".c9-123.tmp"), []byte("x"), 0o644))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c1"}, ids)

	require.NoError(t, s.Update(ctx, "c1", []byte(`{"id":"c1","state":"up"}`)))
	b, err := s.Read(ctx, "c1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"c1","state":"up"}`, string(b))

	require.NoError(t, s.Delete(ctx, "c1"))
	_, err = s.Read(ctx, "c1")
	require.ErrorIs(t, err, repo.ErrNotFound)
	require.ErrorIs(t, s.Update(ctx, "c1", []byte(`{}`)), repo.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "c1"), repo.ErrNotFound)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.Read(context.Background(), "../secret")
	require.ErrorIs(t, err, repo.ErrInvalidID)
}

func TestFileStore_ConcurrentUpdatesStayParseable(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, "c1", []byte(`{"state":"down"}`)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state := "down"
			if i%2 == 0 {
				state = "up"
			}
			_ = s.Update(ctx, "c1", []byte(`{"state":"`+state+`"}`))
		}(i)
	}
	wg.Wait()

	b, err := s.Read(ctx, "c1")
	require.NoError(t, err)
	require.Contains(t, []string{`{"state":"up"}`, `{"state":"down"}`}, string(b))
}
