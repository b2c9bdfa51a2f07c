package httpapi

import (
	"net/http"

	"juni-core/internal/service"

	"go.uber.org/zap"
)

// MatchHandler match lifecycle transitions
type MatchHandler struct {
	matches *service.MatchService
	logger  *zap.Logger
}

func NewMatchHandler(matches *service.MatchService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, logger: logger}
}

// ServeHTTP
//
//	POST /api/v1/matches/:id/accept
//	POST /api/v1/matches/:id/reject
func (h *MatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, "/api/v1/matches")
	if len(seg) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	matchID := seg[0]

	var err error
	switch seg[1] {
	case "accept":
		err = h.matches.AcceptMatch(r.Context(), matchID, userID(r))
	case "reject":
		err = h.matches.RejectMatch(r.Context(), matchID, userID(r))
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, h.logger, "match "+seg[1], err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
