package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"juni-core/internal/domain"
	"juni-core/internal/matching"
	"juni-core/internal/notify"
	"juni-core/internal/repository"
	"juni-core/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownerID = "user-owner"

var t0 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeTransfer fails for accounts listed in failFor
type fakeTransfer struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   []TransferRequest
}

func (f *fakeTransfer) Transfer(_ context.Context, req TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failFor[req.DestinationAccount] {
		return "", errors.New("destination account is restricted")
	}
	return "tr_" + req.IdempotencyKey, nil
}

func (f *fakeTransfer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	mem      *repository.MemoryStore
	store    *repository.Store
	notifier *recordingNotifier
	transfer *fakeTransfer
	locks    *store.MemoryKVStore
	familyID string
	seniorID string

	matches  *MatchService
	visits   *VisitService
	payouts  *PayoutService
	profiles *ProfileService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:      repository.NewMemoryStore(),
		notifier: &recordingNotifier{},
		transfer: &fakeTransfer{failFor: map[string]bool{}},
		locks:    store.NewMemoryKVStore(),
		clock:    t0,
	}
	f.store = f.mem.Store()
	f.familyID = f.mem.PutFamily(domain.Family{OwnerUserID: ownerID, Name: "Rivera"})

	logger := zap.NewNop()
	owners := NewFamilyOwnership(f.store.Seniors)
	f.profiles = NewProfileService(f.store, owners, logger)
	f.matches = NewMatchService(f.store, matching.NewEngine(), owners, f.notifier, 5, logger)
	f.visits = NewVisitService(f.store, owners, f.notifier, logger)
	f.payouts = NewPayoutService(f.store, f.transfer, f.locks, f.notifier, PayoutServiceConfig{
		HourlyRateCents: 2600,
		PlatformFeePct:  0.10,
		Concurrency:     3,
		LockTTL:         time.Minute,
	}, logger)

	now := func() time.Time { return f.clock }
	f.matches.now = now
	f.visits.now = now
	f.payouts.now = now

	id, err := f.profiles.UpsertSenior(context.Background(), UpsertSeniorRequest{
		RequesterID: ownerID,
		Senior: domain.SeniorProfile{
			FamilyID:           f.familyID,
			Interests:          []string{"Gardening", "Chess"},
			CompanionQualities: []string{"Patient", "Curious", "Warm"},
			SocialStyle:        []string{matching.StyleOneOnOne},
			Personality:        domain.Personality{Agreeableness: intPtr(80)},
			Location:           "Phoenix, AZ",
		},
	})
	require.NoError(t, err)
	f.seniorID = id
	return f
}

func (f *fixture) addCompanion(status domain.CompanionStatus, account string, interests ...string) string {
	return f.mem.PutCompanion(domain.CompanionProfile{
		Interests:       interests,
		Availability:    domain.AvailabilityFullTime,
		State:           "AZ",
		Status:          status,
		PayoutAccountID: account,
	})
}

// completedVisit books, checks in and checks out a visit of the given length
func (f *fixture) completedVisit(t *testing.T, companionID string, at time.Time, minutes int) string {
	t.Helper()
	ctx := context.Background()
	v, err := f.visits.RequestVisit(ctx, RequestVisitRequest{
		RequesterID: ownerID,
		SeniorID:    f.seniorID,
		CompanionID: companionID,
		ScheduledAt: at,
		DurationMin: 60,
	})
	require.NoError(t, err)

	f.clock = at
	_, err = f.visits.CheckInVisit(ctx, v.VisitID, companionID, nil)
	require.NoError(t, err)
	f.clock = at.Add(time.Duration(minutes) * time.Minute)
	_, err = f.visits.CheckOutVisit(ctx, v.VisitID, companionID, domain.CheckOutDetails{Mood: "cheerful"})
	require.NoError(t, err)
	return v.VisitID
}
