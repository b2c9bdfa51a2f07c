package httpapi

import (
	"net/http"

	"juni-core/internal/domain"
	"juni-core/internal/service"

	"go.uber.org/zap"
)

// VisitHandler visit booking and the companion check-in/out flow. The
// acting companion is the caller (X-User-Id).
type VisitHandler struct {
	visits *service.VisitService
	logger *zap.Logger
}

func NewVisitHandler(visits *service.VisitService, logger *zap.Logger) *VisitHandler {
	return &VisitHandler{visits: visits, logger: logger}
}

// ServeHTTP
//
//	POST /api/v1/visits                  request a visit (family)
//	GET  /api/v1/visits/:id
//	POST /api/v1/visits/:id/confirm      companion
//	POST /api/v1/visits/:id/check-in     companion
//	POST /api/v1/visits/:id/check-out    companion
//	POST /api/v1/visits/:id/cancel       companion or family
func (h *VisitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, "/api/v1/visits")
	switch len(seg) {
	case 0:
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.RequestVisit(w, r)
		return
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetVisit(w, r, seg[0])
		return
	case 2:
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch seg[1] {
	case "confirm":
		h.ConfirmVisit(w, r, seg[0])
	case "check-in":
		h.CheckIn(w, r, seg[0])
	case "check-out":
		h.CheckOut(w, r, seg[0])
	case "cancel":
		h.Cancel(w, r, seg[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *VisitHandler) RequestVisit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SeniorID    string `json:"senior_id"`
		CompanionID string `json:"companion_id"`
		ScheduledAt string `json:"scheduled_at"`
		DurationMin int    `json:"duration_min"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	at, err := parseTime(payload.ScheduledAt)
	if err != nil {
		badRequest(w, "scheduled_at must be RFC3339")
		return
	}

	v, err := h.visits.RequestVisit(r.Context(), service.RequestVisitRequest{
		RequesterID: userID(r),
		SeniorID:    payload.SeniorID,
		CompanionID: payload.CompanionID,
		ScheduledAt: at,
		DurationMin: payload.DurationMin,
	})
	if err != nil {
		writeError(w, h.logger, "RequestVisit", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(toVisitJSON(v)))
}

func (h *VisitHandler) GetVisit(w http.ResponseWriter, r *http.Request, visitID string) {
	v, err := h.visits.GetVisit(r.Context(), visitID, userID(r))
	if err != nil {
		writeError(w, h.logger, "GetVisit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toVisitJSON(v)))
}

func (h *VisitHandler) ConfirmVisit(w http.ResponseWriter, r *http.Request, visitID string) {
	if err := h.visits.ConfirmVisit(r.Context(), visitID, userID(r)); err != nil {
		writeError(w, h.logger, "ConfirmVisit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type locationPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p locationPayload) point() *domain.GeoPoint {
	if p.Lat == nil || p.Lng == nil {
		return nil
	}
	return &domain.GeoPoint{Lat: *p.Lat, Lng: *p.Lng}
}

func (h *VisitHandler) CheckIn(w http.ResponseWriter, r *http.Request, visitID string) {
	var payload locationPayload
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	res, err := h.visits.CheckInVisit(r.Context(), visitID, userID(r), payload.point())
	if err != nil {
		writeError(w, h.logger, "CheckIn", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *VisitHandler) CheckOut(w http.ResponseWriter, r *http.Request, visitID string) {
	var payload struct {
		locationPayload
		Mood       string   `json:"mood"`
		Activities []string `json:"activities"`
		Notes      string   `json:"notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	res, err := h.visits.CheckOutVisit(r.Context(), visitID, userID(r), domain.CheckOutDetails{
		Location:   payload.point(),
		Mood:       payload.Mood,
		Activities: payload.Activities,
		Notes:      payload.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "CheckOut", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *VisitHandler) Cancel(w http.ResponseWriter, r *http.Request, visitID string) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := h.visits.CancelVisit(r.Context(), visitID, userID(r), payload.Reason); err != nil {
		writeError(w, h.logger, "CancelVisit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
