// Package cli implements the memory-storage CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/config"
	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/logging"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var (
	cfgFile    string
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:     "memory-storage",
	Short:   "Project-scoped memory files for AI agents",
	Long:    "Store memory files grouped into projects, back them up on a timer and serve them over HTTP.",
	Version: Version,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./memory-storage.{yaml,toml} or ~/.config/memory-storage/)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Store DSN: SQLite path or postgres:// URL (default: <data_dir>/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml, toml or text")
}

// app is an opened store with the engine wrapped around it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.SQLStore
	engine *engine.Engine
}

func (a *app) Close() error {
	return a.store.Close()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	return cfg, nil
}

// openApp loads the config, opens the store and makes sure the default projects exist.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e := engine.New(s, engine.Options{
		MaxPayloadBytes:   cfg.Storage.MaxPayloadBytes,
		MemoryTypes:       cfg.MemoryTypes(),
		DefaultMemoryType: model.MemoryType(cfg.Storage.DefaultMemoryType),
		AcquireTimeout:    cfg.Storage.AcquireTimeout,
		Logger:            logger,
	})
	if err := e.EnsureProjects(ctx, cfg.Storage.DefaultProjects); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure default projects: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: s, engine: e}, nil
}

func mustOpenApp(cmd *cobra.Command) *app {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	return a
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
