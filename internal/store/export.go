package store

import (
	"context"
	"time"

	"github.com/rcliao/memory-storage/internal/model"
)

// Snapshot returns every project and file, content included, from one transaction.
func (s *SQLStore) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, s.d.snapshotOpts)
	if err != nil {
		return nil, model.StorageError("snapshot", "", "", err)
	}
	defer tx.Rollback()

	snap := &model.Snapshot{TakenAt: time.Now().UTC(), Projects: []model.Project{}, Files: []model.File{}}

	prows, err := tx.QueryContext(ctx,
		`SELECT `+projectColumns+` `+projectFrom+` `+projectGroup+` ORDER BY p.name`)
	if err != nil {
		return nil, model.StorageError("snapshot", "", "", err)
	}
	for prows.Next() {
		p, err := scanProject(prows)
		if err != nil {
			prows.Close()
			return nil, model.StorageError("snapshot", "", "", err)
		}
		snap.Projects = append(snap.Projects, p)
	}
	prows.Close()
	if err := prows.Err(); err != nil {
		return nil, model.StorageError("snapshot", "", "", err)
	}

	frows, err := tx.QueryContext(ctx,
		`SELECT `+fileInfoColumns+`, content FROM files ORDER BY project, name`)
	if err != nil {
		return nil, model.StorageError("snapshot", "", "", err)
	}
	defer frows.Close()
	for frows.Next() {
		f, err := scanFile(frows)
		if err != nil {
			return nil, model.StorageError("snapshot", "", "", err)
		}
		snap.Files = append(snap.Files, f)
	}
	if err := frows.Err(); err != nil {
		return nil, model.StorageError("snapshot", "", "", err)
	}

	return snap, nil
}

// Replace drops the current contents and loads snap in their place. Either the whole
// snapshot is committed or nothing changes.
func (s *SQLStore) Replace(ctx context.Context, snap *model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StorageError("replace", "", "", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return model.StorageError("replace", "", "", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return model.StorageError("replace", "", "", err)
	}

	for _, p := range snap.Projects {
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)`),
			p.Name, p.Description, formatTime(p.CreatedAt))
		if err != nil {
			return model.StorageError("replace", p.Name, "", err)
		}
	}

	for _, f := range snap.Files {
		content := f.Content
		if content == nil {
			content = []byte{}
		}
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO files (project, name, content, content_type, memory_type, size, created_at, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			f.Project, f.Name, content, f.ContentType, string(f.MemoryType), int64(len(content)),
			formatTime(f.CreatedAt), formatTime(f.LastModified))
		if err != nil {
			return model.StorageError("replace", f.Project, f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.StorageError("replace", "", "", err)
	}
	return nil
}
