package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/memory-storage/internal/model"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name string
	// schema statements, run in order by migrate.
	schema []string
	// numbered placeholders ($1, $2...) instead of ?.
	numbered bool
	// contentText renders the content column as searchable text.
	contentText string
	// foldCase names the SQL function that lowercases text the way strings.ToLower does.
	foldCase string
	// snapshotOpts opens the transaction used by Snapshot.
	snapshotOpts *sql.TxOptions
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db     *sql.DB
	d      dialect
	dbPath string
}

func newSQLStore(db *sql.DB, d dialect, dbPath string) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Backend names the SQL backend in use.
func (s *SQLStore) Backend() string { return s.d.name }

func (s *SQLStore) migrate() error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// q rewrites ? placeholders for the active dialect.
func (s *SQLStore) q(query string) string {
	if !s.d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (s *SQLStore) projectExists(ctx context.Context, q queryer, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, s.q(`SELECT 1 FROM projects WHERE name = ?`), name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const projectColumns = `p.name, p.description, p.created_at, COUNT(f.name)`

const projectFrom = `FROM projects p LEFT JOIN files f ON f.project = p.name`

const projectGroup = `GROUP BY p.name, p.description, p.created_at`

func scanProject(row scanner) (model.Project, error) {
	var p model.Project
	var createdAt string
	if err := row.Scan(&p.Name, &p.Description, &createdAt, &p.FileCount); err != nil {
		return p, err
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

const fileInfoColumns = `project, name, memory_type, content_type, size, created_at, last_modified`

func scanFileInfo(row scanner) (model.FileInfo, error) {
	var f model.FileInfo
	var memoryType, createdAt, lastModified string
	err := row.Scan(&f.Project, &f.Name, &memoryType, &f.ContentType, &f.Size, &createdAt, &lastModified)
	if err != nil {
		return f, err
	}
	f.MemoryType = model.MemoryType(memoryType)
	f.CreatedAt = parseTime(createdAt)
	f.LastModified = parseTime(lastModified)
	return f, nil
}

func scanFile(row scanner) (model.File, error) {
	var f model.File
	var memoryType, createdAt, lastModified string
	err := row.Scan(&f.Project, &f.Name, &memoryType, &f.ContentType, &f.Size, &createdAt, &lastModified, &f.Content)
	if err != nil {
		return f, err
	}
	if f.Content == nil {
		f.Content = []byte{}
	}
	f.MemoryType = model.MemoryType(memoryType)
	f.CreatedAt = parseTime(createdAt)
	f.LastModified = parseTime(lastModified)
	return f, nil
}
