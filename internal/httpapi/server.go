// Package httpapi serves the engine, the backup manager and the A2A router over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/memory-storage/internal/a2a"
	"github.com/rcliao/memory-storage/internal/backup"
	"github.com/rcliao/memory-storage/internal/engine"
)

const correlationHeader = "X-Correlation-Id"

// ServerConfig configures the HTTP layer.
type ServerConfig struct {
	Version string
	// MaxBodyBytes caps request bodies; zero derives it from the engine's payload ceiling.
	MaxBodyBytes int64
	EnableAuth   bool
	APIKeys      []string
	Logger       *slog.Logger
}

// Server routes HTTP requests onto the engine.
type Server struct {
	engine  *engine.Engine
	backups *backup.Manager
	router  *a2a.Router
	cfg     ServerConfig
	logger  *slog.Logger
	handler http.Handler
}

// NewServer builds the routing tree.
func NewServer(e *engine.Engine, backups *backup.Manager, cfg ServerConfig) *Server {
	if cfg.MaxBodyBytes <= 0 {
		// JSON escaping can grow content, so leave room above the payload ceiling.
		cfg.MaxBodyBytes = 2*e.MaxPayloadBytes() + 64<<10
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		engine:  e,
		backups: backups,
		router:  a2a.NewRouter(e),
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "http"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.correlation)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", correlationID(r))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", correlationID(r))
	})

	r.Get("/", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Route("/{project}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Delete("/", s.handleDeleteProject)
				r.Get("/files", s.handleListFiles)
				r.Post("/files", s.handleCreateFile)
				r.Get("/files/{file}", s.handleReadFile)
				r.Put("/files/{file}", s.handleUpdateFile)
				r.Delete("/files/{file}", s.handleDeleteFile)
			})
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleCreateBackup)
			r.Get("/{id}", s.handleGetBackup)
			r.Post("/{id}/restore", s.handleRestoreBackup)
		})

		r.Get("/status", s.handleStatus)
		r.Post("/a2a", s.handleA2A)
	})
	return r
}

// Serve runs an http.Server on addr until ctx is done, then shuts it down gracefully.
func (s *Server) Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	srv.Handler = s
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr, "auth", s.cfg.EnableAuth)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type ctxKey struct{}

// correlation propagates X-Correlation-Id, minting one when the caller sent none.
func (s *Server) correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func correlationID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"correlation_id", correlationID(r),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message, correlationID string) {
	writeJSON(w, status, map[string]any{
		"code":          code,
		"message":       message,
		"correlationId": correlationID,
	})
}

// decodeJSON reads a size-capped JSON body into dst, writing the error response on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit", correlationID(r))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body: "+err.Error(), correlationID(r))
		return false
	}
	return true
}
