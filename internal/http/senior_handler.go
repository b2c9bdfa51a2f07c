package httpapi

import (
	"net/http"

	"juni-core/internal/domain"
	"juni-core/internal/service"

	"go.uber.org/zap"
)

// SeniorHandler senior profile, candidates and matches of a senior
type SeniorHandler struct {
	profiles *service.ProfileService
	matches  *service.MatchService
	logger   *zap.Logger
}

func NewSeniorHandler(profiles *service.ProfileService, matches *service.MatchService, logger *zap.Logger) *SeniorHandler {
	return &SeniorHandler{profiles: profiles, matches: matches, logger: logger}
}

// ServeHTTP
//
//	POST /api/v1/seniors                          create (vibe check)
//	GET  /api/v1/seniors/:id                      profile
//	PUT  /api/v1/seniors/:id                      update profile
//	GET  /api/v1/seniors/:id/candidates?limit=5   score eligible companions (read-only)
//	POST /api/v1/seniors/:id/matches/propose      find + propose
//	GET  /api/v1/seniors/:id/matches              persisted matches
func (h *SeniorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, "/api/v1/seniors")
	switch {
	case len(seg) == 0:
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.UpsertSenior(w, r, "")
	case len(seg) == 1:
		switch r.Method {
		case http.MethodGet:
			h.GetSenior(w, r, seg[0])
		case http.MethodPut:
			h.UpsertSenior(w, r, seg[0])
		default:
			methodNotAllowed(w)
		}
	case len(seg) == 2 && seg[1] == "candidates":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetCandidates(w, r, seg[0])
	case len(seg) == 2 && seg[1] == "matches":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.ListMatches(w, r, seg[0])
	case len(seg) == 3 && seg[1] == "matches" && seg[2] == "propose":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.ProposeMatches(w, r, seg[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *SeniorHandler) GetSenior(w http.ResponseWriter, r *http.Request, seniorID string) {
	s, err := h.profiles.GetSenior(r.Context(), seniorID, userID(r))
	if err != nil {
		writeError(w, h.logger, "GetSenior", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toSeniorJSON(s)))
}

func (h *SeniorHandler) UpsertSenior(w http.ResponseWriter, r *http.Request, seniorID string) {
	var payload seniorJSON
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	payload.SeniorID = seniorID
	if seniorID != "" {
		// the family of an existing senior never changes
		existing, err := h.profiles.GetSenior(r.Context(), seniorID, userID(r))
		if err != nil {
			writeError(w, h.logger, "UpsertSenior", err)
			return
		}
		payload.FamilyID = existing.FamilyID
	}

	id, err := h.profiles.UpsertSenior(r.Context(), service.UpsertSeniorRequest{
		RequesterID: userID(r),
		Senior:      payload.toDomain(),
	})
	if err != nil {
		writeError(w, h.logger, "UpsertSenior", err)
		return
	}
	status := http.StatusOK
	if seniorID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, Ok(map[string]any{"senior_id": id}))
}

func (h *SeniorHandler) GetCandidates(w http.ResponseWriter, r *http.Request, seniorID string) {
	ctx := r.Context()
	if _, err := h.profiles.GetSenior(ctx, seniorID, userID(r)); err != nil {
		writeError(w, h.logger, "GetCandidates", err)
		return
	}
	results, err := h.matches.FindMatchesForSenior(ctx, seniorID, parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeError(w, h.logger, "GetCandidates", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": results}))
}

func (h *SeniorHandler) ProposeMatches(w http.ResponseWriter, r *http.Request, seniorID string) {
	ctx := r.Context()
	var payload struct {
		Limit int `json:"limit"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if _, err := h.profiles.GetSenior(ctx, seniorID, userID(r)); err != nil {
		writeError(w, h.logger, "ProposeMatches", err)
		return
	}
	results, err := h.matches.ProposeForSenior(ctx, seniorID, payload.Limit)
	if err != nil {
		writeError(w, h.logger, "ProposeMatches", err)
		return
	}
	if results == nil {
		results = []domain.MatchResult{}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": results}))
}

func (h *SeniorHandler) ListMatches(w http.ResponseWriter, r *http.Request, seniorID string) {
	matches, err := h.matches.ListMatchesForSenior(r.Context(), seniorID, userID(r))
	if err != nil {
		writeError(w, h.logger, "ListMatches", err)
		return
	}
	items := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		items = append(items, toMatchJSON(m))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items}))
}
