package engine

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/rcliao/memory-storage/internal/lock"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// WriteRequest holds parameters for a content write.
type WriteRequest struct {
	Project     string
	Name        string
	Content     []byte
	ContentType string
	MemoryType  model.MemoryType
}

func (e *Engine) CreateFile(ctx context.Context, project, name string, memoryType model.MemoryType) (*model.FileInfo, error) {
	if err := e.checkFile("create file", project, name); err != nil {
		return nil, err
	}
	if err := e.checkMemoryType("create file", project, name, memoryType); err != nil {
		return nil, err
	}
	if memoryType == "" {
		memoryType = e.defaultType
	}

	release, err := e.locks.File(ctx, project, name, lock.Write)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.store.CreateFile(ctx, store.CreateFileParams{Project: project, Name: name, MemoryType: memoryType})
}

func (e *Engine) ReadFile(ctx context.Context, project, name string) (*model.File, error) {
	if err := e.checkFile("read", project, name); err != nil {
		return nil, err
	}
	release, err := e.locks.File(ctx, project, name, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.store.ReadContent(ctx, project, name)
}

type writeMode int

const (
	upsert writeMode = iota
	updateOnly
	createOnly
)

// WriteFile replaces the file content, creating the file when it does not exist.
func (e *Engine) WriteFile(ctx context.Context, r WriteRequest) (*store.WriteResult, error) {
	return e.write(ctx, "write", r, upsert)
}

// UpdateFile replaces the content of an existing file.
func (e *Engine) UpdateFile(ctx context.Context, r WriteRequest) (*store.WriteResult, error) {
	return e.write(ctx, "update", r, updateOnly)
}

// AddFile creates a file with initial content; it fails with ErrAlreadyExists if the
// file is present.
func (e *Engine) AddFile(ctx context.Context, r WriteRequest) (*store.WriteResult, error) {
	return e.write(ctx, "create file", r, createOnly)
}

func (e *Engine) write(ctx context.Context, op string, r WriteRequest, mode writeMode) (*store.WriteResult, error) {
	if err := e.checkFile(op, r.Project, r.Name); err != nil {
		return nil, err
	}
	if int64(len(r.Content)) > e.maxPayload {
		return nil, &model.Error{Op: op, Kind: model.ErrPayloadTooLarge, Project: r.Project, File: r.Name,
			Err: fmt.Errorf("%d bytes exceeds limit of %d", len(r.Content), e.maxPayload)}
	}
	if err := e.checkMemoryType(op, r.Project, r.Name, r.MemoryType); err != nil {
		return nil, err
	}

	release, err := e.locks.File(ctx, r.Project, r.Name, lock.Write)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := e.store.WriteContent(ctx, store.WriteParams{
		Project:      r.Project,
		Name:         r.Name,
		Content:      r.Content,
		ContentType:  r.ContentType,
		MemoryType:   r.MemoryType,
		DefaultType:  e.defaultType,
		MustExist:    mode == updateOnly,
		MustNotExist: mode == createOnly,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("file written", "project", r.Project, "file", r.Name, "size", res.File.Size, "created", res.Created)
	return res, nil
}

// DeleteFile removes the file and its content.
func (e *Engine) DeleteFile(ctx context.Context, project, name string) error {
	if err := e.checkFile("delete file", project, name); err != nil {
		return err
	}
	release, err := e.locks.File(ctx, project, name, lock.Write)
	if err != nil {
		return err
	}
	defer release()
	return e.store.DeleteFile(ctx, project, name)
}

// ListFiles lists the project's files ordered by name. A non-empty pattern is a glob
// matched against file names.
func (e *Engine) ListFiles(ctx context.Context, project, pattern string) ([]model.FileInfo, error) {
	if err := e.checkProject("list files", project); err != nil {
		return nil, err
	}
	var g glob.Glob
	if pattern != "" {
		var err error
		g, err = glob.Compile(pattern)
		if err != nil {
			return nil, &model.Error{Op: "list files", Kind: model.ErrInvalidInput, Project: project, Err: err}
		}
	}

	release, err := e.locks.Project(ctx, project, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()

	files, err := e.store.ListFiles(ctx, project)
	if err != nil || g == nil {
		return files, err
	}
	matched := files[:0]
	for _, f := range files {
		if g.Match(f.Name) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// SearchFiles finds files whose name or content contains query. An empty project
// searches every project.
func (e *Engine) SearchFiles(ctx context.Context, project, query string, limit int) ([]model.FileInfo, error) {
	if query == "" {
		return nil, &model.Error{Op: "search", Kind: model.ErrInvalidInput, Project: project,
			Err: fmt.Errorf("query is required")}
	}
	var release lock.Release
	var err error
	if project != "" {
		if err := e.checkProject("search", project); err != nil {
			return nil, err
		}
		release, err = e.locks.Project(ctx, project, lock.Read)
	} else {
		release, err = e.locks.Shared(ctx)
	}
	if err != nil {
		return nil, err
	}
	defer release()
	return e.store.Search(ctx, store.SearchParams{Project: project, Query: query, Limit: limit})
}
