// Package model defines the core memory data types.
package model

import "time"

// MemoryType classifies a File. It has no behaviour beyond being stored and returned.
type MemoryType string

const (
	ShortTerm MemoryType = "SHORT_TERM"
	LongTerm  MemoryType = "LONG_TERM"
	ProjectMT MemoryType = "PROJECT"
	GlobalMT  MemoryType = "GLOBAL"
)

// DefaultMemoryType is used when a write creates a File without naming a type.
const DefaultMemoryType = LongTerm

// DefaultContentType is the content type hint for Files written without one.
const DefaultContentType = "text/markdown"

// MemoryTypes are the built-in memory type tags.
var MemoryTypes = []MemoryType{ShortTerm, LongTerm, ProjectMT, GlobalMT}

// ValidMemoryTypes are the allowed memory types when none are configured.
var ValidMemoryTypes = map[MemoryType]bool{
	ShortTerm: true,
	LongTerm:  true,
	ProjectMT: true,
	GlobalMT:  true,
}

// Project is a top-level namespace.
type Project struct {
	Name        string    `json:"name" yaml:"name" toml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	FileCount   int       `json:"file_count" yaml:"file_count" toml:"file_count"`
}

// FileInfo is the metadata of a File without its content.
type FileInfo struct {
	Project      string     `json:"project" yaml:"project" toml:"project"`
	Name         string     `json:"name" yaml:"name" toml:"name"`
	MemoryType   MemoryType `json:"memory_type" yaml:"memory_type" toml:"memory_type"`
	ContentType  string     `json:"content_type" yaml:"content_type" toml:"content_type"`
	Size         int64      `json:"size" yaml:"size" toml:"size"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at" toml:"created_at"`
	LastModified time.Time  `json:"last_modified" yaml:"last_modified" toml:"last_modified"`
}

// File is a named memory unit with its current content.
type File struct {
	FileInfo `yaml:",inline"`
	Content  []byte `json:"content" yaml:"-" toml:"-"`
}

// Snapshot is a point-in-time image of every Project and File in the store.
type Snapshot struct {
	TakenAt  time.Time `json:"taken_at" toml:"taken_at"`
	Projects []Project `json:"projects" toml:"projects"`
	Files    []File    `json:"files" toml:"files"`
}

// FileCount returns the number of files captured for the named project.
func (s *Snapshot) FileCount(project string) int {
	n := 0
	for _, f := range s.Files {
		if f.Project == project {
			n++
		}
	}
	return n
}

// Validate checks names, uniqueness and that every file belongs to a captured project.
func (s *Snapshot) Validate() error {
	projects := make(map[string]bool, len(s.Projects))
	for _, p := range s.Projects {
		if !ValidProjectName(p.Name) {
			return ProjectError("validate snapshot", ErrInvalidName, p.Name)
		}
		if projects[p.Name] {
			return ProjectError("validate snapshot", ErrAlreadyExists, p.Name)
		}
		projects[p.Name] = true
	}
	files := make(map[string]bool, len(s.Files))
	for _, f := range s.Files {
		if !ValidFileName(f.Name) {
			return FileError("validate snapshot", ErrInvalidName, f.Project, f.Name)
		}
		if !projects[f.Project] {
			return FileError("validate snapshot", ErrProjectNotFound, f.Project, f.Name)
		}
		key := f.Project + "/" + f.Name
		if files[key] {
			return FileError("validate snapshot", ErrAlreadyExists, f.Project, f.Name)
		}
		files[key] = true
	}
	return nil
}
