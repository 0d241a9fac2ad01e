package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcliao/memory-storage/internal/model"
)

func (s *SQLStore) CreateProject(ctx context.Context, p CreateProjectParams) (*model.Project, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`),
		p.Name, p.Description, formatTime(now))
	if err != nil {
		return nil, model.StorageError("create project", p.Name, "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, model.StorageError("create project", p.Name, "", err)
	}
	if n == 0 {
		return nil, model.ProjectError("create project", model.ErrAlreadyExists, p.Name)
	}

	return &model.Project{Name: p.Name, Description: p.Description, CreatedAt: now}, nil
}

func (s *SQLStore) GetProject(ctx context.Context, name string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+projectColumns+` `+projectFrom+` WHERE p.name = ? `+projectGroup), name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ProjectError("get project", model.ErrNotFound, name)
	}
	if err != nil {
		return nil, model.StorageError("get project", name, "", err)
	}
	return &p, nil
}

func (s *SQLStore) DeleteProject(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StorageError("delete project", name, "", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM files WHERE project = ?`), name); err != nil {
		return model.StorageError("delete project", name, "", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM projects WHERE name = ?`), name)
	if err != nil {
		return model.StorageError("delete project", name, "", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ProjectError("delete project", model.ErrNotFound, name)
	}

	if err := tx.Commit(); err != nil {
		return model.StorageError("delete project", name, "", err)
	}
	return nil
}

func (s *SQLStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` `+projectFrom+` `+projectGroup+` ORDER BY p.name`)
	if err != nil {
		return nil, model.StorageError("list projects", "", "", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, model.StorageError("list projects", "", "", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("list projects", "", "", err)
	}
	return projects, nil
}

func (s *SQLStore) CreateFile(ctx context.Context, p CreateFileParams) (*model.FileInfo, error) {
	now := time.Now().UTC()
	memoryType := p.MemoryType
	if memoryType == "" {
		memoryType = model.DefaultMemoryType
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.StorageError("create file", p.Project, p.Name, err)
	}
	defer tx.Rollback()

	ok, err := s.projectExists(ctx, tx, p.Project)
	if err != nil {
		return nil, model.StorageError("create file", p.Project, p.Name, err)
	}
	if !ok {
		return nil, model.FileError("create file", model.ErrProjectNotFound, p.Project, p.Name)
	}

	res, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO files (project, name, content, content_type, memory_type, size, created_at, last_modified)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT (project, name) DO NOTHING`),
		p.Project, p.Name, []byte{}, contentType, string(memoryType), formatTime(now), formatTime(now))
	if err != nil {
		return nil, model.StorageError("create file", p.Project, p.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.FileError("create file", model.ErrAlreadyExists, p.Project, p.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.StorageError("create file", p.Project, p.Name, err)
	}

	return &model.FileInfo{
		Project:      p.Project,
		Name:         p.Name,
		MemoryType:   memoryType,
		ContentType:  contentType,
		CreatedAt:    now,
		LastModified: now,
	}, nil
}

func (s *SQLStore) DeleteFile(ctx context.Context, project, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StorageError("delete file", project, name, err)
	}
	defer tx.Rollback()

	ok, err := s.projectExists(ctx, tx, project)
	if err != nil {
		return model.StorageError("delete file", project, name, err)
	}
	if !ok {
		return model.FileError("delete file", model.ErrProjectNotFound, project, name)
	}

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM files WHERE project = ? AND name = ?`), project, name)
	if err != nil {
		return model.StorageError("delete file", project, name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.FileError("delete file", model.ErrNotFound, project, name)
	}

	if err := tx.Commit(); err != nil {
		return model.StorageError("delete file", project, name, err)
	}
	return nil
}

func (s *SQLStore) ListFiles(ctx context.Context, project string) ([]model.FileInfo, error) {
	ok, err := s.projectExists(ctx, s.db, project)
	if err != nil {
		return nil, model.StorageError("list files", project, "", err)
	}
	if !ok {
		return nil, model.ProjectError("list files", model.ErrProjectNotFound, project)
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+fileInfoColumns+` FROM files WHERE project = ? ORDER BY name`), project)
	if err != nil {
		return nil, model.StorageError("list files", project, "", err)
	}
	defer rows.Close()

	files := []model.FileInfo{}
	for rows.Next() {
		f, err := scanFileInfo(rows)
		if err != nil {
			return nil, model.StorageError("list files", project, "", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("list files", project, "", err)
	}
	return files, nil
}
