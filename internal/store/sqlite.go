package store

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
)

// SQLite's built-in lower() only folds ASCII.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold_case", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS projects (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS files (
		project       TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		content       BLOB,
		content_type  TEXT NOT NULL,
		memory_type   TEXT NOT NULL,
		size          INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		PRIMARY KEY (project, name)
	)`,
		`CREATE INDEX IF NOT EXISTS idx_files_memory_type ON files(project, memory_type)`,
		`CREATE INDEX IF NOT EXISTS idx_files_modified ON files(last_modified DESC)`,
	},
	contentText: "CAST(content AS TEXT)",
	foldCase:    "fold_case",
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Commits are fsynced before they return (WAL with synchronous=FULL).
// Transactions begin IMMEDIATE so a writer waits on busy_timeout for the
// write lock instead of failing to upgrade a read snapshot.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(wal)&_pragma=synchronous(full)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"+
		"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	return newSQLStore(db, sqliteDialect, dbPath)
}
