package store

import (
	"context"
	"fmt"
	"strings"
)

// Open builds a store from a DSN. postgres:// and postgresql:// select Postgres;
// sqlite://path, file:path or a bare path select SQLite.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("empty store dsn")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return NewSQLiteStore(strings.TrimPrefix(dsn, "file:"))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported store dsn scheme: %s", dsn[:strings.Index(dsn, "://")])
	default:
		return NewSQLiteStore(dsn)
	}
}
