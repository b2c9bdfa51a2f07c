package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"juni-core/internal/domain"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// statusFor maps a domain error kind to the HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err in the Result envelope. Storage and other
// unexpected errors are logged and shown as a generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
	} else {
		logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, Fail(domain.PublicMessage(err)))
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Fail(msg))
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// userID caller identity set by the upstream auth layer
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-User-Role"), "admin")
}

// pathSegments splits the path below prefix; "" segments are dropped
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// parseTime accepts RFC3339 or a plain date (UTC midnight)
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
