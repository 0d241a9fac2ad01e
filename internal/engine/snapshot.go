package engine

import (
	"context"

	"github.com/rcliao/memory-storage/internal/lock"
	"github.com/rcliao/memory-storage/internal/model"
)

// Snapshot captures the whole store. It holds every project token shared while reading,
// so no cascade can interleave, and reads in a single transaction.
func (e *Engine) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	projects, err := e.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}

	release, err := e.locks.Projects(ctx, names, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.store.Snapshot(ctx)
}

// Restore replaces the whole store with snap. It waits for every in-flight operation,
// keeps new ones out, and commits the replacement in one transaction; on error the
// store is unchanged.
func (e *Engine) Restore(ctx context.Context, snap *model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	release, err := e.locks.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.Replace(ctx, snap); err != nil {
		return err
	}
	e.logger.Info("store replaced", "projects", len(snap.Projects), "files", len(snap.Files))
	return nil
}
