package httpapi

import (
	"net/http"

	"juni-core/internal/domain"
	"juni-core/internal/service"

	"go.uber.org/zap"
)

// CompanionHandler companion profile, onboarding status and payouts
type CompanionHandler struct {
	profiles *service.ProfileService
	visits   *service.VisitService
	payouts  *service.PayoutService
	logger   *zap.Logger
}

func NewCompanionHandler(profiles *service.ProfileService, visits *service.VisitService, payouts *service.PayoutService, logger *zap.Logger) *CompanionHandler {
	return &CompanionHandler{profiles: profiles, visits: visits, payouts: payouts, logger: logger}
}

// ServeHTTP
//
//	GET  /api/v1/companions?status=ACTIVE               admin
//	GET  /api/v1/companions/:id
//	PUT  /api/v1/companions/:id/status                  admin
//	GET  /api/v1/companions/:id/visits?status=          self or admin
//	GET  /api/v1/companions/:id/payouts                 self or admin
//	POST /api/v1/companions/:id/payouts                 admin, one companion run
//	GET  /api/v1/companions/:id/payouts/statement.xlsx  self or admin
func (h *CompanionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, "/api/v1/companions")
	if len(seg) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.ListCompanions(w, r)
		return
	}

	companionID := seg[0]
	switch {
	case len(seg) == 1 && r.Method == http.MethodGet:
		h.GetCompanion(w, r, companionID)
	case len(seg) == 2 && seg[1] == "status" && r.Method == http.MethodPut:
		h.UpdateStatus(w, r, companionID)
	case len(seg) == 2 && seg[1] == "visits" && r.Method == http.MethodGet:
		h.ListVisits(w, r, companionID)
	case len(seg) == 2 && seg[1] == "payouts" && r.Method == http.MethodGet:
		h.ListPayouts(w, r, companionID)
	case len(seg) == 2 && seg[1] == "payouts" && r.Method == http.MethodPost:
		h.ProcessPayout(w, r, companionID)
	case len(seg) == 3 && seg[1] == "payouts" && seg[2] == "statement.xlsx" && r.Method == http.MethodGet:
		h.ExportStatement(w, r, companionID)
	case len(seg) <= 3:
		methodNotAllowed(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !isAdmin(r) {
		writeJSON(w, http.StatusForbidden, Fail("admin role required"))
		return false
	}
	return true
}

func requireSelfOrAdmin(w http.ResponseWriter, r *http.Request, companionID string) bool {
	if isAdmin(r) || userID(r) == companionID {
		return true
	}
	writeJSON(w, http.StatusForbidden, Fail("access denied"))
	return false
}

func (h *CompanionHandler) ListCompanions(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	list, err := h.profiles.ListCompanions(r.Context(), domain.CompanionStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, h.logger, "ListCompanions", err)
		return
	}
	items := make([]companionJSON, 0, len(list))
	for _, c := range list {
		items = append(items, toCompanionJSON(c))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items}))
}

func (h *CompanionHandler) GetCompanion(w http.ResponseWriter, r *http.Request, companionID string) {
	c, err := h.profiles.GetCompanion(r.Context(), companionID)
	if err != nil {
		writeError(w, h.logger, "GetCompanion", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toCompanionJSON(c)))
}

func (h *CompanionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, companionID string) {
	if !requireAdmin(w, r) {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := h.profiles.UpdateCompanionStatus(r.Context(), companionID, domain.CompanionStatus(payload.Status)); err != nil {
		writeError(w, h.logger, "UpdateCompanionStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *CompanionHandler) ListVisits(w http.ResponseWriter, r *http.Request, companionID string) {
	if !requireSelfOrAdmin(w, r, companionID) {
		return
	}
	visits, err := h.visits.ListCompanionVisits(r.Context(), companionID, domain.VisitStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, h.logger, "ListCompanionVisits", err)
		return
	}
	items := make([]visitJSON, 0, len(visits))
	for _, v := range visits {
		items = append(items, toVisitJSON(v))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items}))
}

func (h *CompanionHandler) ListPayouts(w http.ResponseWriter, r *http.Request, companionID string) {
	if !requireSelfOrAdmin(w, r, companionID) {
		return
	}
	payouts, err := h.payouts.ListPayouts(r.Context(), companionID)
	if err != nil {
		writeError(w, h.logger, "ListPayouts", err)
		return
	}
	items := make([]payoutJSON, 0, len(payouts))
	for _, p := range payouts {
		items = append(items, toPayoutJSON(p))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items}))
}

func (h *CompanionHandler) ProcessPayout(w http.ResponseWriter, r *http.Request, companionID string) {
	if !requireAdmin(w, r) {
		return
	}
	start, end, ok := readPeriod(w, r)
	if !ok {
		return
	}
	p, err := h.payouts.ProcessCompanionPayout(r.Context(), companionID, start, end)
	if err != nil {
		writeError(w, h.logger, "ProcessCompanionPayout", err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, Ok[any](nil))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPayoutJSON(p)))
}

func (h *CompanionHandler) ExportStatement(w http.ResponseWriter, r *http.Request, companionID string) {
	if !requireSelfOrAdmin(w, r, companionID) {
		return
	}
	st, err := h.payouts.Statement(r.Context(), companionID)
	if err != nil {
		writeError(w, h.logger, "PayoutStatement", err)
		return
	}
	data, err := GeneratePayoutStatement(st)
	if err != nil {
		writeError(w, h.logger, "GeneratePayoutStatement", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="payout_statement_`+companionID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
