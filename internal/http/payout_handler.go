package httpapi

import (
	"net/http"
	"time"

	"juni-core/internal/service"

	"go.uber.org/zap"
)

// PayoutHandler admin payout runs
type PayoutHandler struct {
	payouts *service.PayoutService
	logger  *zap.Logger
}

func NewPayoutHandler(payouts *service.PayoutService, logger *zap.Logger) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, logger: logger}
}

// ServeHTTP
//
//	POST /api/v1/payouts/run   {companion_ids?, period_start, period_end}
//	GET  /api/v1/payouts/:id
func (h *PayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, "/api/v1/payouts")
	if len(seg) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch {
	case seg[0] == "run" && r.Method == http.MethodPost:
		h.RunPayouts(w, r)
	case seg[0] != "run" && r.Method == http.MethodGet:
		h.GetPayout(w, r, seg[0])
	default:
		methodNotAllowed(w)
	}
}

// readPeriod reads {period_start, period_end} from the body
func readPeriod(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var payload struct {
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return time.Time{}, time.Time{}, false
	}
	return parsePeriod(w, payload.PeriodStart, payload.PeriodEnd)
}

// parsePeriod a plain-date period_end covers that whole day
func parsePeriod(w http.ResponseWriter, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := parseTime(startStr)
	if err != nil {
		badRequest(w, "period_start must be RFC3339 or YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseTime(endStr)
	if err != nil {
		badRequest(w, "period_end must be RFC3339 or YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if len(endStr) == len("2006-01-02") {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, true
}

func (h *PayoutHandler) RunPayouts(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var payload struct {
		CompanionIDs []string `json:"companion_ids"`
		PeriodStart  string   `json:"period_start"`
		PeriodEnd    string   `json:"period_end"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		badRequest(w, "invalid body")
		return
	}
	start, end, ok := parsePeriod(w, payload.PeriodStart, payload.PeriodEnd)
	if !ok {
		return
	}

	res, err := h.payouts.RunPayouts(r.Context(), service.RunPayoutsRequest{
		CompanionIDs: payload.CompanionIDs,
		PeriodStart:  start,
		PeriodEnd:    end,
	})
	if err != nil {
		writeError(w, h.logger, "RunPayouts", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *PayoutHandler) GetPayout(w http.ResponseWriter, r *http.Request, payoutID string) {
	p, err := h.payouts.GetPayout(r.Context(), payoutID)
	if err != nil {
		writeError(w, h.logger, "GetPayout", err)
		return
	}
	if !requireSelfOrAdmin(w, r, p.CompanionID) {
		return
	}
	writeJSON(w, http.StatusOK, Ok(toPayoutJSON(p)))
}
