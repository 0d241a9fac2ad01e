package model

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidInput    = errors.New("invalid input")
	ErrProjectNotFound = errors.New("project not found")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrBusy            = errors.New("busy")
	ErrArchiveNotFound = errors.New("archive not found")
	ErrBackupFailed    = errors.New("backup failed")
	ErrRestoreFailed   = errors.New("restore failed")
	// ErrStorage marks failures of the underlying store rather than of the caller's input.
	ErrStorage = errors.New("storage failure")
	ErrClosed  = errors.New("closed")
)

var kinds = []error{
	ErrNotFound, ErrAlreadyExists, ErrInvalidName, ErrInvalidInput, ErrProjectNotFound,
	ErrPayloadTooLarge, ErrBusy, ErrArchiveNotFound, ErrBackupFailed, ErrRestoreFailed,
	ErrStorage, ErrClosed,
}

// Error is a typed failure carrying its kind and the identifiers it concerns.
type Error struct {
	Op      string
	Kind    error
	Project string
	File    string
	Archive string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if id := e.ident(); id != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(id)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) ident() string {
	switch {
	case e.Archive != "":
		return e.Archive
	case e.File != "":
		return e.Project + "/" + e.File
	default:
		return e.Project
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ProjectError builds a failure about a project.
func ProjectError(op string, kind error, project string) *Error {
	return &Error{Op: op, Kind: kind, Project: project}
}

// FileError builds a failure about a file.
func FileError(op string, kind error, project, file string) *Error {
	return &Error{Op: op, Kind: kind, Project: project, File: file}
}

// ArchiveError builds a failure about a backup archive.
func ArchiveError(op string, kind error, id string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Archive: id, Err: cause}
}

// StorageError wraps a driver or I/O failure.
func StorageError(op, project, file string, cause error) *Error {
	return &Error{Op: op, Kind: ErrStorage, Project: project, File: file, Err: cause}
}

// KindOf returns the failure kind of err, or nil when err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
