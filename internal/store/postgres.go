package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresConnectTimeout = 5 * time.Second

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS projects (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS files (
		project       TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		content       BYTEA,
		content_type  TEXT NOT NULL,
		memory_type   TEXT NOT NULL,
		size          BIGINT NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		PRIMARY KEY (project, name)
	)`,
		`CREATE INDEX IF NOT EXISTS idx_files_memory_type ON files(project, memory_type)`,
		`CREATE INDEX IF NOT EXISTS idx_files_modified ON files(last_modified DESC)`,
	},
	numbered:     true,
	contentText:  "encode(content, 'escape')",
	foldCase:     "lower",
	snapshotOpts: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
}

type sqlOpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// NewPostgresStore connects to Postgres and creates the schema when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	return newPostgresStore(ctx, dsn, sql.Open)
}

func newPostgresStore(ctx context.Context, dsn string, open sqlOpenFunc) (*SQLStore, error) {
	db, err := open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return newSQLStore(db, postgresDialect, "")
}
