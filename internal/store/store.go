// Package store provides the project/file directory and content store with SQL backends.
package store

import (
	"context"

	"github.com/rcliao/memory-storage/internal/model"
)

// CreateProjectParams holds parameters for creating a project.
type CreateProjectParams struct {
	Name        string
	Description string
}

// CreateFileParams holds parameters for creating an empty file.
type CreateFileParams struct {
	Project     string
	Name        string
	MemoryType  model.MemoryType
	ContentType string
}

// WriteParams holds parameters for replacing a file's content.
type WriteParams struct {
	Project      string
	Name         string
	Content      []byte
	ContentType  string
	MemoryType   model.MemoryType // empty keeps the existing type
	DefaultType  model.MemoryType // type used on create when MemoryType is empty
	MustExist    bool             // fail with ErrNotFound instead of creating
	MustNotExist bool             // fail with ErrAlreadyExists instead of replacing
}

// WriteResult reports the stored metadata and whether the write created the file.
type WriteResult struct {
	File    model.FileInfo `json:"file" toml:"file"`
	Created bool           `json:"created" toml:"created"`
}

// SearchParams holds parameters for searching files.
type SearchParams struct {
	Project string
	Query   string
	Limit   int
}

// Directory maintains the set of projects and, per project, the set of files.
type Directory interface {
	CreateProject(ctx context.Context, p CreateProjectParams) (*model.Project, error)
	GetProject(ctx context.Context, name string) (*model.Project, error)
	// DeleteProject removes the project and all of its files in one transaction.
	DeleteProject(ctx context.Context, name string) error
	ListProjects(ctx context.Context) ([]model.Project, error)

	CreateFile(ctx context.Context, p CreateFileParams) (*model.FileInfo, error)
	// DeleteFile removes the file entry together with its content.
	DeleteFile(ctx context.Context, project, name string) error
	ListFiles(ctx context.Context, project string) ([]model.FileInfo, error)
}

// Content reads and replaces file payloads.
type Content interface {
	ReadContent(ctx context.Context, project, name string) (*model.File, error)
	// WriteContent replaces the content, creating the file when absent unless MustExist is set.
	// It returns only after the change is on stable storage.
	WriteContent(ctx context.Context, p WriteParams) (*WriteResult, error)
}

// Store is the full storage surface used by the engine.
type Store interface {
	Directory
	Content

	Search(ctx context.Context, p SearchParams) ([]model.FileInfo, error)

	// Snapshot reads every project and file in one consistent transaction.
	Snapshot(ctx context.Context) (*model.Snapshot, error)
	// Replace swaps the whole store contents for snap in one transaction.
	Replace(ctx context.Context, snap *model.Snapshot) error

	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store.
	Close() error
}
