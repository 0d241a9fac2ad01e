package cli

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-storage/internal/httpapi"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over HTTP and run scheduled backups",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides server.port)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustOpenApp(cmd)
	defer a.Close()
	if port > 0 {
		a.cfg.Server.Port = port
	}

	m, err := a.newBackupManager()
	if err != nil {
		exitErr("open backups", err)
	}
	m.Start(ctx)

	srv := httpapi.NewServer(a.engine, m, httpapi.ServerConfig{
		Version:    Version,
		EnableAuth: a.cfg.Security.EnableAuth,
		APIKeys:    a.cfg.APIKeys(),
		Logger:     a.logger,
	})
	httpSrv := &http.Server{
		Addr:         a.cfg.Addr(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  2 * a.cfg.Server.WriteTimeout,
	}
	a.logger.Info("starting",
		"version", Version,
		"backend", a.store.Backend(),
		"backup_dir", m.Dir(),
		"backup_interval", a.cfg.BackupInterval(),
	)

	serveErr := srv.Serve(ctx, httpSrv, a.cfg.Server.ShutdownTimeout)
	stop()
	if err := m.Close(); err != nil {
		a.logger.Error("close backups", "error", err)
	}
	if serveErr != nil {
		a.Close()
		exitErr("serve", serveErr)
	}
	a.logger.Info("stopped")
}
