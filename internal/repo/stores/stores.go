// Package stores picks a check store implementation from a URL.
package stores

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/repo/filestore"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
	"github.com/hamed0406/uptimeworker/internal/repo/postgres"
	"github.com/hamed0406/uptimeworker/internal/repo/sqlstore"
)

// Open creates a store based on the uri string:
//
//	"" or "memory"                  in-process map
//	postgres://...                  pgx pool, schema applied on open
//	mysql://... | sqlite:/path.db   database/sql via dburl
//	anything else                   directory of <id>.json files
func Open(ctx context.Context, uri string, log *zap.Logger) (repo.AdminStore, error) {
	lower := strings.ToLower(uri)
	switch {
	case uri == "", lower == "memory":
		return memory.New(), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		s, err := postgres.New(ctx, uri, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(lower, "mysql:"),
		strings.HasPrefix(lower, "sqlite:"),
		strings.HasPrefix(lower, "sqlite3:"):
		return sqlstore.Open(ctx, uri)
	default:
		return filestore.New(strings.TrimPrefix(uri, "dir:"))
	}
}
