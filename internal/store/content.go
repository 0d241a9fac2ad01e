package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcliao/memory-storage/internal/model"
)

func (s *SQLStore) ReadContent(ctx context.Context, project, name string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+fileInfoColumns+`, content FROM files WHERE project = ? AND name = ?`),
		project, name)
	f, err := scanFile(row)
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, model.StorageError("read", project, name, err)
	}

	ok, err := s.projectExists(ctx, s.db, project)
	if err != nil {
		return nil, model.StorageError("read", project, name, err)
	}
	if !ok {
		return nil, model.FileError("read", model.ErrProjectNotFound, project, name)
	}
	return nil, model.FileError("read", model.ErrNotFound, project, name)
}

func (s *SQLStore) WriteContent(ctx context.Context, p WriteParams) (*WriteResult, error) {
	now := time.Now().UTC()
	content := p.Content
	if content == nil {
		content = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.StorageError("write", p.Project, p.Name, err)
	}
	defer tx.Rollback()

	ok, err := s.projectExists(ctx, tx, p.Project)
	if err != nil {
		return nil, model.StorageError("write", p.Project, p.Name, err)
	}
	if !ok {
		return nil, model.FileError("write", model.ErrProjectNotFound, p.Project, p.Name)
	}

	var prevType, prevContentType, prevCreated string
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT memory_type, content_type, created_at FROM files WHERE project = ? AND name = ?`),
		p.Project, p.Name).Scan(&prevType, &prevContentType, &prevCreated)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, model.StorageError("write", p.Project, p.Name, err)
	}
	if !exists && p.MustExist {
		return nil, model.FileError("update", model.ErrNotFound, p.Project, p.Name)
	}
	if exists && p.MustNotExist {
		return nil, model.FileError("create file", model.ErrAlreadyExists, p.Project, p.Name)
	}

	info := model.FileInfo{
		Project:      p.Project,
		Name:         p.Name,
		MemoryType:   p.MemoryType,
		ContentType:  p.ContentType,
		Size:         int64(len(content)),
		CreatedAt:    now,
		LastModified: now,
	}

	if exists {
		if info.MemoryType == "" {
			info.MemoryType = model.MemoryType(prevType)
		}
		if info.ContentType == "" {
			info.ContentType = prevContentType
		}
		info.CreatedAt = parseTime(prevCreated)
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE files SET content = ?, content_type = ?, memory_type = ?, size = ?, last_modified = ?
			 WHERE project = ? AND name = ?`),
			content, info.ContentType, string(info.MemoryType), info.Size, formatTime(now), p.Project, p.Name)
	} else {
		if info.MemoryType == "" {
			info.MemoryType = p.DefaultType
		}
		if info.MemoryType == "" {
			info.MemoryType = model.DefaultMemoryType
		}
		if info.ContentType == "" {
			info.ContentType = model.DefaultContentType
		}
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO files (project, name, content, content_type, memory_type, size, created_at, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			p.Project, p.Name, content, info.ContentType, string(info.MemoryType), info.Size,
			formatTime(now), formatTime(now))
	}
	if err != nil {
		return nil, model.StorageError("write", p.Project, p.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, model.StorageError("write", p.Project, p.Name, err)
	}

	return &WriteResult{File: info, Created: !exists}, nil
}
