package engine

import (
	"context"
	"errors"

	"github.com/rcliao/memory-storage/internal/lock"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// DefaultProject is a project created at startup when missing.
type DefaultProject struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
}

// DefaultProjects is used when no defaults are configured.
var DefaultProjects = []DefaultProject{{Name: "GLOBAL", Description: "Shared memory for all agents"}}

func (e *Engine) CreateProject(ctx context.Context, name, description string) (*model.Project, error) {
	if err := e.checkProject("create project", name); err != nil {
		return nil, err
	}
	release, err := e.locks.Project(ctx, name, lock.Write)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := e.store.CreateProject(ctx, store.CreateProjectParams{Name: name, Description: description})
	if err != nil {
		return nil, err
	}
	e.logger.Info("project created", "project", name)
	return p, nil
}

func (e *Engine) GetProject(ctx context.Context, name string) (*model.Project, error) {
	if err := e.checkProject("get project", name); err != nil {
		return nil, err
	}
	release, err := e.locks.Project(ctx, name, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.store.GetProject(ctx, name)
}

// DeleteProject removes the project and every file in it. It waits for in-flight file
// operations under the project and keeps new ones out until the cascade commits.
func (e *Engine) DeleteProject(ctx context.Context, name string) error {
	if err := e.checkProject("delete project", name); err != nil {
		return err
	}
	release, err := e.locks.Project(ctx, name, lock.Write)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.DeleteProject(ctx, name); err != nil {
		return err
	}
	e.logger.Info("project deleted", "project", name)
	return nil
}

func (e *Engine) ListProjects(ctx context.Context) ([]model.Project, error) {
	release, err := e.locks.Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.store.ListProjects(ctx)
}

// EnsureProjects creates each missing default project. Existing ones are left alone.
func (e *Engine) EnsureProjects(ctx context.Context, defaults []DefaultProject) error {
	for _, d := range defaults {
		_, err := e.CreateProject(ctx, d.Name, d.Description)
		if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}
