package stores

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/repo/filestore"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
	"github.com/hamed0406/uptimeworker/internal/repo/sqlstore"
)

func TestOpen_PicksBackendFromURI(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := zap.NewNop()

	cases := []struct {
		uri  string
		want string
	}{
		{"", "memory"},
		{"MEMORY", "memory"},
		{filepath.Join(dir, "checks"), "file"},
		{"dir:" + filepath.Join(dir, "other"), "file"},
		{"sqlite:" + filepath.Join(dir, "checks.db"), "sql"},
	}
	for _, c := range cases {
		s, err := Open(ctx, c.uri, log)
		if err != nil {
			t.Fatalf("Open(%q): %v", c.uri, err)
		}
		var got string
		switch s.(type) {
		case *memory.Store:
			got = "memory"
		case *filestore.Store:
			got = "file"
		case *sqlstore.Store:
			got = "sql"
		}
		if got != c.want {
			t.Fatalf("Open(%q) = %T, want %s", c.uri, s, c.want)
		}
		_ = s.Close()
	}
}
