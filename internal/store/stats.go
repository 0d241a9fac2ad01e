package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	Backend      string         `json:"backend" yaml:"backend" toml:"backend"`
	DBPath       string         `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
	DBSizeBytes  int64          `json:"db_size_bytes,omitempty" yaml:"db_size_bytes,omitempty" toml:"db_size_bytes,omitempty"`
	Projects     int            `json:"projects" yaml:"projects" toml:"projects"`
	Files        int            `json:"files" yaml:"files" toml:"files"`
	ContentBytes int64          `json:"content_bytes" yaml:"content_bytes" toml:"content_bytes"`
	MemoryTypes  map[string]int `json:"memory_types" yaml:"memory_types" toml:"memory_types"`
	PerProject   []ProjectStats `json:"per_project" yaml:"per_project" toml:"per_project"`
}

// ProjectStats holds per-project counts.
type ProjectStats struct {
	Project string `json:"project" yaml:"project" toml:"project"`
	Files   int    `json:"files" yaml:"files" toml:"files"`
	Bytes   int64  `json:"bytes" yaml:"bytes" toml:"bytes"`
}

// Stats returns database statistics.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: s.d.name, DBPath: s.dbPath, MemoryTypes: map[string]int{}}

	// DB file size
	if s.dbPath != "" {
		if info, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&st.Projects); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&st.Files, &st.ContentBytes); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT memory_type, COUNT(*) FROM files GROUP BY memory_type`)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var mt string
		var n int
		if err := rows.Scan(&mt, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.MemoryTypes[mt] = n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT p.name, COUNT(f.name), COALESCE(SUM(f.size), 0)
		FROM projects p LEFT JOIN files f ON f.project = p.name
		GROUP BY p.name ORDER BY p.name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProjectStats
		if err := rows.Scan(&ps.Project, &ps.Files, &ps.Bytes); err != nil {
			return st, err
		}
		st.PerProject = append(st.PerProject, ps)
	}

	return st, rows.Err()
}
