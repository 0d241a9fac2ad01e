package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rcliao/memory-storage/internal/model"
)

// statusFor maps an engine failure onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch model.KindOf(err) {
	case model.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case model.ErrProjectNotFound:
		return http.StatusNotFound, "project_not_found"
	case model.ErrArchiveNotFound:
		return http.StatusNotFound, "archive_not_found"
	case model.ErrAlreadyExists:
		return http.StatusConflict, "already_exists"
	case model.ErrInvalidName:
		return http.StatusBadRequest, "invalid_name"
	case model.ErrInvalidInput:
		return http.StatusBadRequest, "invalid_input"
	case model.ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case model.ErrBusy:
		return http.StatusServiceUnavailable, "busy"
	case model.ErrClosed:
		return http.StatusServiceUnavailable, "closed"
	case model.ErrBackupFailed:
		return http.StatusInternalServerError, "backup_failed"
	case model.ErrRestoreFailed:
		return http.StatusInternalServerError, "restore_failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "correlation_id", correlationID(r))
	}
	writeError(w, status, code, err.Error(), correlationID(r))
}
