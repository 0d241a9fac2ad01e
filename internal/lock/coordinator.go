// Package lock coordinates access to projects and files.
//
// Three token levels exist: a store-wide gate, one token per project and one per
// (project, file). Every token is a readers/writer token whose acquisition honours
// context cancellation. Callers always take them in gate, project, file order, and
// projects in ascending name order, so no two callers can wait on each other in a cycle.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rcliao/memory-storage/internal/model"
)

// writeWeight is the weight a writer takes; readers take 1.
const writeWeight = 1 << 30

var errWaitExpired = errors.New("lock wait expired")

// Mode selects shared or exclusive ownership.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) weight() int64 {
	if m == Write {
		return writeWeight
	}
	return 1
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

type fileKey struct {
	project string
	file    string
}

// Coordinator hands out ownership tokens.
type Coordinator struct {
	gate *semaphore.Weighted

	mu       sync.Mutex
	projects map[string]*entry
	files    map[fileKey]*entry

	timeout time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds every wait; a wait that runs out fails with model.ErrBusy.
// Zero waits until the caller's context ends.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// New returns a Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		gate:     semaphore.NewWeighted(writeWeight),
		projects: make(map[string]*entry),
		files:    make(map[fileKey]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Release gives back the tokens obtained by one acquisition.
type Release func()

// File acquires the gate and project tokens shared and the file token in mode m.
func (c *Coordinator) File(ctx context.Context, project, file string, m Mode) (Release, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var held []func()
	undo := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	if err := c.acquireGate(ctx, Read, project, file); err != nil {
		return nil, err
	}
	held = append(held, func() { c.gate.Release(1) })

	rel, err := c.acquireProject(ctx, project, Read, file)
	if err != nil {
		undo()
		return nil, err
	}
	held = append(held, rel)

	rel, err = c.acquireFile(ctx, fileKey{project, file}, m)
	if err != nil {
		undo()
		return nil, err
	}
	held = append(held, rel)

	return once(undo), nil
}

// Project acquires the gate shared and the project token in mode m. Write mode waits
// for every file token under the project, since file holders keep the project shared.
func (c *Coordinator) Project(ctx context.Context, project string, m Mode) (Release, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.acquireGate(ctx, Read, project, ""); err != nil {
		return nil, err
	}
	rel, err := c.acquireProject(ctx, project, m, "")
	if err != nil {
		c.gate.Release(1)
		return nil, err
	}
	return once(func() {
		rel()
		c.gate.Release(1)
	}), nil
}

// Projects acquires the gate shared and every named project in mode m, in name order.
func (c *Coordinator) Projects(ctx context.Context, names []string, m Mode) (Release, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	if err := c.acquireGate(ctx, Read, "", ""); err != nil {
		return nil, err
	}
	held := []func(){func() { c.gate.Release(1) }}
	undo := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	var prev string
	for i, name := range sorted {
		if i > 0 && name == prev {
			continue
		}
		prev = name
		rel, err := c.acquireProject(ctx, name, m, "")
		if err != nil {
			undo()
			return nil, err
		}
		held = append(held, rel)
	}
	return once(undo), nil
}

// Shared acquires only the gate in read mode, for store-wide reads such as listing projects.
func (c *Coordinator) Shared(ctx context.Context) (Release, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.acquireGate(ctx, Read, "", ""); err != nil {
		return nil, err
	}
	return once(func() { c.gate.Release(1) }), nil
}

// Exclusive acquires the gate in write mode. It waits for every in-flight operation
// and blocks all new ones until released.
func (c *Coordinator) Exclusive(ctx context.Context) (Release, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.acquireGate(ctx, Write, "", ""); err != nil {
		return nil, err
	}
	return once(func() { c.gate.Release(writeWeight) }), nil
}

func (c *Coordinator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeoutCause(ctx, c.timeout, errWaitExpired)
}

func (c *Coordinator) acquireGate(ctx context.Context, m Mode, project, file string) error {
	if err := c.gate.Acquire(ctx, m.weight()); err != nil {
		return c.waitErr(ctx, err, project, file)
	}
	return nil
}

func (c *Coordinator) acquireProject(ctx context.Context, project string, m Mode, file string) (func(), error) {
	c.mu.Lock()
	e, ok := c.projects[project]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(writeWeight)}
		c.projects[project] = e
	}
	e.refs++
	c.mu.Unlock()

	drop := func() {
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.projects, project)
		}
		c.mu.Unlock()
	}

	if err := e.sem.Acquire(ctx, m.weight()); err != nil {
		drop()
		return nil, c.waitErr(ctx, err, project, file)
	}
	return func() {
		e.sem.Release(m.weight())
		drop()
	}, nil
}

func (c *Coordinator) acquireFile(ctx context.Context, key fileKey, m Mode) (func(), error) {
	c.mu.Lock()
	e, ok := c.files[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(writeWeight)}
		c.files[key] = e
	}
	e.refs++
	c.mu.Unlock()

	drop := func() {
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.files, key)
		}
		c.mu.Unlock()
	}

	if err := e.sem.Acquire(ctx, m.weight()); err != nil {
		drop()
		return nil, c.waitErr(ctx, err, key.project, key.file)
	}
	return func() {
		e.sem.Release(m.weight())
		drop()
	}, nil
}

// waitErr turns an expired bounded wait into ErrBusy; caller cancellation passes through.
func (c *Coordinator) waitErr(ctx context.Context, err error, project, file string) error {
	if errors.Is(context.Cause(ctx), errWaitExpired) {
		return &model.Error{Op: "acquire", Kind: model.ErrBusy, Project: project, File: file, Err: errWaitExpired}
	}
	return err
}

func once(f func()) Release {
	var o sync.Once
	return func() { o.Do(f) }
}
