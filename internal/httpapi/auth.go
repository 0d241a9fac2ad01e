package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type authError struct {
	status  int
	code    string
	message string
}

func (e *authError) Error() string {
	return e.message
}

// authorizeBearer checks an Authorization header against the configured keys.
func authorizeBearer(authHeader string, keys []string) *authError {
	if authHeader == "" {
		return &authError{status: http.StatusUnauthorized, code: "unauthorized", message: "authorization header missing"}
	}
	scheme, token, _ := strings.Cut(authHeader, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return &authError{status: http.StatusUnauthorized, code: "unauthorized", message: "invalid authentication scheme"}
	}
	token = strings.TrimSpace(token)
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(k)) == 1 {
			return nil
		}
	}
	return &authError{status: http.StatusUnauthorized, code: "unauthorized", message: "invalid authentication token"}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	if !s.cfg.EnableAuth {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authorizeBearer(r.Header.Get("Authorization"), s.cfg.APIKeys); err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, err.status, err.code, err.message, correlationID(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}
