// Package engine exposes the memory store operation set. Every operation validates its
// input, takes the tokens it needs from the coordinator and then calls the store.
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rcliao/memory-storage/internal/lock"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// DefaultMaxPayloadBytes is the content ceiling when none is configured.
const DefaultMaxPayloadBytes = 1 << 20

// Options configures an Engine.
type Options struct {
	MaxPayloadBytes   int64
	MemoryTypes       []model.MemoryType
	DefaultMemoryType model.MemoryType
	// AcquireTimeout bounds token waits; zero waits until the context ends.
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// Engine is the memory store.
type Engine struct {
	store       store.Store
	locks       *lock.Coordinator
	maxPayload  int64
	memoryTypes map[model.MemoryType]bool
	defaultType model.MemoryType
	logger      *slog.Logger
}

// New wraps s. The caller keeps ownership of s and closes it.
func New(s store.Store, opts Options) *Engine {
	e := &Engine{
		store:       s,
		locks:       lock.New(lock.WithTimeout(opts.AcquireTimeout)),
		maxPayload:  opts.MaxPayloadBytes,
		memoryTypes: make(map[model.MemoryType]bool),
		defaultType: opts.DefaultMemoryType,
		logger:      opts.Logger,
	}
	if e.maxPayload <= 0 {
		e.maxPayload = DefaultMaxPayloadBytes
	}
	types := opts.MemoryTypes
	if len(types) == 0 {
		types = model.MemoryTypes
	}
	for _, t := range types {
		e.memoryTypes[t] = true
	}
	if e.defaultType == "" {
		e.defaultType = model.DefaultMemoryType
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// MaxPayloadBytes reports the content ceiling.
func (e *Engine) MaxPayloadBytes() int64 { return e.maxPayload }

// Stats returns store statistics.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	release, err := e.locks.Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.store.Stats(ctx)
}

func (e *Engine) checkProject(op, name string) error {
	if !model.ValidProjectName(name) {
		return model.ProjectError(op, model.ErrInvalidName, name)
	}
	return nil
}

func (e *Engine) checkFile(op, project, name string) error {
	if !model.ValidProjectName(project) {
		return model.FileError(op, model.ErrInvalidName, project, name)
	}
	if !model.ValidFileName(name) {
		return model.FileError(op, model.ErrInvalidName, project, name)
	}
	return nil
}

func (e *Engine) checkMemoryType(op, project, name string, t model.MemoryType) error {
	if t == "" || e.memoryTypes[t] {
		return nil
	}
	return &model.Error{Op: op, Kind: model.ErrInvalidInput, Project: project, File: name,
		Err: errUnknownMemoryType(t)}
}

type errUnknownMemoryType model.MemoryType

func (t errUnknownMemoryType) Error() string { return "unknown memory type " + string(t) }
