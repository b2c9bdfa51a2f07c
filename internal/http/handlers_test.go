package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"juni-core/internal/domain"
	"juni-core/internal/matching"
	"juni-core/internal/notify"
	"juni-core/internal/repository"
	"juni-core/internal/service"
	"juni-core/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	ownerID = "user-owner"
	adminID = "user-admin"
)

type testAPI struct {
	mem       *repository.MemoryStore
	router    *Router
	familyID  string
	transfers atomic.Int32
}

// newTestAPI wires the full router over the memory store and a fake
// transfer API that rejects the account "acct_blocked".
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{mem: repository.NewMemoryStore()}
	api.familyID = api.mem.PutFamily(domain.Family{OwnerUserID: ownerID, Name: "Rivera"})

	transferSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.transfers.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["destination"] == "acct_blocked" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request","message":"account restricted"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"tr_` + r.Header.Get("Idempotency-Key") + `","status":"paid"}`))
	}))
	t.Cleanup(transferSrv.Close)

	logger := zap.NewNop()
	st := api.mem.Store()
	owners := service.NewFamilyOwnership(st.Seniors)
	profiles := service.NewProfileService(st, owners, logger)
	matches := service.NewMatchService(st, matching.NewEngine(), owners, notify.Nop{}, 5, logger)
	visits := service.NewVisitService(st, owners, notify.Nop{}, logger)
	payouts := service.NewPayoutService(st,
		service.NewHTTPTransferClient(transferSrv.URL, "sk_test", 2*time.Second, 0, logger),
		store.NewMemoryKVStore(), notify.Nop{},
		service.PayoutServiceConfig{HourlyRateCents: 2600, PlatformFeePct: 0.10, Concurrency: 2}, logger)

	api.router = NewRouter(logger)
	api.router.RegisterHealth()
	api.router.RegisterSeniorRoutes(NewSeniorHandler(profiles, matches, logger))
	api.router.RegisterMatchRoutes(NewMatchHandler(matches, logger))
	api.router.RegisterVisitRoutes(NewVisitHandler(visits, logger))
	api.router.RegisterCompanionRoutes(NewCompanionHandler(profiles, visits, payouts, logger))
	api.router.RegisterPayoutRoutes(NewPayoutHandler(payouts, logger))
	return api
}

func (api *testAPI) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	if user == adminID {
		req.Header.Set("X-User-Role", "admin")
	}
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Result, out))
	}
	return env
}

func (api *testAPI) createSenior(t *testing.T) string {
	t.Helper()
	rr := api.do(t, http.MethodPost, "/api/v1/seniors", ownerID, map[string]any{
		"family_id":           api.familyID,
		"display_name":        "Rosa",
		"interests":           []string{"Gardening", "Chess"},
		"companion_qualities": []string{"Patient", "Curious"},
		"social_style":        []string{matching.StyleOneOnOne},
		"personality":         map[string]int{"agreeableness": 80},
		"location":            "Phoenix, AZ",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res struct {
		SeniorID string `json:"senior_id"`
	}
	decode(t, rr, &res)
	require.NotEmpty(t, res.SeniorID)
	return res.SeniorID
}

func (api *testAPI) addCompanion(account string) string {
	return api.mem.PutCompanion(domain.CompanionProfile{
		DisplayName:     "Sam",
		Interests:       []string{"gardening"},
		Availability:    domain.AvailabilityFullTime,
		State:           "AZ",
		Status:          domain.CompanionActive,
		PayoutAccountID: account,
	})
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ResultSuccess, decode(t, rr, nil).Code)
}

func TestSeniorAccessIsFamilyOnly(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)

	rr := api.do(t, http.MethodGet, "/api/v1/seniors/"+seniorID, ownerID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var s seniorJSON
	decode(t, rr, &s)
	assert.Equal(t, "Phoenix, AZ", s.Location)
	require.NotNil(t, s.Personality.Agreeableness)
	assert.Equal(t, 80, *s.Personality.Agreeableness)

	rr = api.do(t, http.MethodGet, "/api/v1/seniors/"+seniorID, "someone-else", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, ResultError, decode(t, rr, nil).Code)

	rr = api.do(t, http.MethodGet, "/api/v1/seniors/does-not-exist", ownerID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodDelete, "/api/v1/seniors/"+seniorID, ownerID, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCreateSeniorRejectsBadPersonality(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodPost, "/api/v1/seniors", ownerID, map[string]any{
		"family_id":   api.familyID,
		"personality": map[string]int{"agreeableness": 140},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seniors", strings.NewReader("{not json"))
	req.Header.Set("X-User-Id", ownerID)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposeAndAcceptMatch(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)
	companionID := api.addCompanion("acct_1")

	rr := api.do(t, http.MethodPost, "/api/v1/seniors/"+seniorID+"/matches/propose", ownerID, map[string]int{"limit": 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var proposed struct {
		Items []domain.MatchResult `json:"items"`
	}
	decode(t, rr, &proposed)
	require.Len(t, proposed.Items, 1)
	assert.Equal(t, companionID, proposed.Items[0].CompanionID)

	rr = api.do(t, http.MethodGet, "/api/v1/seniors/"+seniorID+"/matches", ownerID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Items []matchJSON `json:"items"`
	}
	decode(t, rr, &listed)
	require.Len(t, listed.Items, 1)
	matchID := listed.Items[0].MatchID
	assert.Equal(t, string(domain.MatchProposed), listed.Items[0].Status)

	rr = api.do(t, http.MethodPost, "/api/v1/matches/"+matchID+"/accept", "someone-else", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/v1/matches/"+matchID+"/accept", ownerID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodGet, "/api/v1/seniors/"+seniorID, ownerID, nil)
	var s seniorJSON
	decode(t, rr, &s)
	assert.Equal(t, companionID, s.CompanionID)

	// an ACTIVE match can no longer be rejected
	rr = api.do(t, http.MethodPost, "/api/v1/matches/"+matchID+"/reject", ownerID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestVisitCheckInOutFlow(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)
	companionID := api.addCompanion("acct_1")

	rr := api.do(t, http.MethodPost, "/api/v1/visits", ownerID, map[string]any{
		"senior_id":    seniorID,
		"companion_id": companionID,
		"scheduled_at": "2026-03-03T15:00:00Z",
		"duration_min": 90,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var v visitJSON
	decode(t, rr, &v)
	assert.Equal(t, string(domain.VisitScheduled), v.Status)
	base := "/api/v1/visits/" + v.VisitID

	rr = api.do(t, http.MethodPost, base+"/check-out", companionID, map[string]any{})
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	// another companion cannot see the visit
	rr = api.do(t, http.MethodPost, base+"/check-in", "other-companion", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodPost, base+"/check-in", companionID, map[string]float64{"lat": 33.45, "lng": -112.07})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodPost, base+"/check-in", companionID, map[string]any{})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "visit cannot be checked into in its current state (IN_PROGRESS)", decode(t, rr, nil).Message)

	rr = api.do(t, http.MethodPost, base+"/check-out", companionID, map[string]any{
		"mood":       "cheerful",
		"activities": []string{"walk"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		ActualMinutes int `json:"actual_minutes"`
	}
	decode(t, rr, &out)
	assert.GreaterOrEqual(t, out.ActualMinutes, 0)

	rr = api.do(t, http.MethodGet, base, ownerID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &v)
	assert.Equal(t, string(domain.VisitCompleted), v.Status)
	require.NotNil(t, v.CheckInLocation)
	assert.InDelta(t, 33.45, v.CheckInLocation.Lat, 1e-9)
	assert.Equal(t, []string{"walk"}, v.Activities)

	rr = api.do(t, http.MethodPost, base+"/cancel", ownerID, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func (api *testAPI) seedCompletedVisit(t *testing.T, seniorID, companionID string, at time.Time, minutes int) {
	t.Helper()
	checkIn := at
	checkOut := at.Add(time.Duration(minutes) * time.Minute)
	_, err := api.mem.CreateVisit(context.Background(), &domain.Visit{
		SeniorID:      seniorID,
		CompanionID:   companionID,
		ScheduledAt:   at,
		DurationMin:   60,
		Status:        domain.VisitCompleted,
		CheckInAt:     &checkIn,
		CheckOutAt:    &checkOut,
		ActualMinutes: &minutes,
	})
	require.NoError(t, err)
}

func TestRunPayouts(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)
	paid := api.addCompanion("acct_1")
	blocked := api.addCompanion("acct_blocked")
	idle := api.addCompanion("acct_2")

	at := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	api.seedCompletedVisit(t, seniorID, paid, at, 240)
	api.seedCompletedVisit(t, seniorID, paid, at.Add(24*time.Hour), 120)
	api.seedCompletedVisit(t, seniorID, blocked, at, 60)

	body := map[string]any{
		"companion_ids": []string{paid, blocked, idle},
		"period_start":  "2026-03-01",
		"period_end":    "2026-03-07",
	}
	rr := api.do(t, http.MethodPost, "/api/v1/payouts/run", ownerID, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/v1/payouts/run", adminID, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res service.RunPayoutsResult
	decode(t, rr, &res)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.EqualValues(t, 2, api.transfers.Load())

	byCompanion := map[string]service.PayoutOutcome{}
	for _, o := range res.Outcomes {
		byCompanion[o.CompanionID] = o
	}
	assert.Equal(t, "paid", byCompanion[paid].Status)
	assert.Equal(t, "failed", byCompanion[blocked].Status)
	assert.Equal(t, "nothing_due", byCompanion[idle].Status)

	// 6h at $26/h = 15600, fee 1560
	rr = api.do(t, http.MethodGet, "/api/v1/payouts/"+byCompanion[paid].PayoutID, paid, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var p payoutJSON
	decode(t, rr, &p)
	assert.Equal(t, string(domain.PayoutPaid), p.Status)
	assert.Equal(t, "6", p.TotalHours)
	assert.EqualValues(t, 15600, p.GrossAmountCents)
	assert.EqualValues(t, 14040, p.NetAmountCents)
	assert.Equal(t, "tr_"+p.PayoutID, p.TransferRef)

	// another companion may not read it
	rr = api.do(t, http.MethodGet, "/api/v1/payouts/"+p.PayoutID, blocked, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// a second run finds nothing new
	rr = api.do(t, http.MethodPost, "/api/v1/payouts/run", adminID, body)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &res)
	assert.EqualValues(t, 2, api.transfers.Load())
	for _, o := range res.Outcomes {
		assert.Equal(t, "nothing_due", o.Status, o.CompanionID)
	}
}

func TestProcessCompanionPayoutFailure(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)
	blocked := api.addCompanion("acct_blocked")
	api.seedCompletedVisit(t, seniorID, blocked, time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), 90)

	rr := api.do(t, http.MethodPost, "/api/v1/companions/"+blocked+"/payouts", adminID, map[string]string{
		"period_start": "2026-03-01",
		"period_end":   "2026-03-31",
	})
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/v1/companions/"+blocked+"/payouts", blocked, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Items []payoutJSON `json:"items"`
	}
	decode(t, rr, &listed)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, string(domain.PayoutFailed), listed.Items[0].Status)
	assert.NotEmpty(t, listed.Items[0].FailureReason)

	rr = api.do(t, http.MethodPost, "/api/v1/companions/"+blocked+"/payouts", adminID, map[string]string{
		"period_start": "2026-03-31",
		"period_end":   "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPayoutStatementExport(t *testing.T) {
	api := newTestAPI(t)
	seniorID := api.createSenior(t)
	companionID := api.addCompanion("acct_1")
	at := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	api.seedCompletedVisit(t, seniorID, companionID, at, 240)
	api.seedCompletedVisit(t, seniorID, companionID, at.Add(time.Hour*48), 30)

	rr := api.do(t, http.MethodPost, "/api/v1/companions/"+companionID+"/payouts", adminID, map[string]string{
		"period_start": "2026-03-01",
		"period_end":   "2026-03-31",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodGet, "/api/v1/companions/"+companionID+"/payouts/statement.xlsx", "someone-else", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/v1/companions/"+companionID+"/payouts/statement.xlsx", companionID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "payout_statement_"+companionID)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(payoutsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, PayoutStatementHeader, rows[0])
	assert.Equal(t, "PAID", rows[1][9])

	visits, err := f.GetRows(visitsSheet)
	require.NoError(t, err)
	require.Len(t, visits, 3)
	assert.Equal(t, "240", visits[1][4])
	// billed hours carry the payout total on every linked visit
	assert.Equal(t, "4.5", visits[1][5])
	assert.Equal(t, "4.5", visits[2][5])
	assert.Equal(t, "30", visits[2][4])
}

func TestCompanionAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	companionID := api.addCompanion("acct_1")

	rr := api.do(t, http.MethodGet, "/api/v1/companions?status=ACTIVE", companionID, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPut, "/api/v1/companions/"+companionID+"/status", adminID, map[string]string{"status": "SUSPENDED"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodGet, "/api/v1/companions?status=ACTIVE", adminID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Items []companionJSON `json:"items"`
	}
	decode(t, rr, &listed)
	assert.Empty(t, listed.Items)

	rr = api.do(t, http.MethodPut, "/api/v1/companions/"+companionID+"/status", adminID, map[string]string{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPut, "/api/v1/companions/missing/status", adminID, map[string]string{"status": "ACTIVE"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
