package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"juni-core/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore backs every repository when DB is disabled (dev mode, tests).
// One mutex covers all tables so multi-row writes are atomic the same way a
// transaction is on Postgres. Values are copied in and out.
type MemoryStore struct {
	mu           sync.RWMutex
	families     map[string]domain.Family
	seniors      map[string]domain.SeniorProfile
	companions   map[string]domain.CompanionProfile
	companionSeq []string // insertion order, mirrors ORDER BY created_at
	matches      map[string]domain.Match
	visits       map[string]domain.Visit
	payouts      map[string]domain.Payout

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		families:   map[string]domain.Family{},
		seniors:    map[string]domain.SeniorProfile{},
		companions: map[string]domain.CompanionProfile{},
		matches:    map[string]domain.Match{},
		visits:     map[string]domain.Visit{},
		payouts:    map[string]domain.Payout{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ SeniorsRepository    = (*MemoryStore)(nil)
	_ CompanionsRepository = (*MemoryStore)(nil)
	_ MatchesRepository    = (*MemoryStore)(nil)
	_ VisitsRepository     = (*MemoryStore)(nil)
	_ PayoutsRepository    = (*MemoryStore)(nil)
)

// Store exposes the memory store through the Store bundle
func (m *MemoryStore) Store() *Store {
	return &Store{Seniors: m, Companions: m, Matches: m, Visits: m, Payouts: m}
}

// PutFamily seeds a family
func (m *MemoryStore) PutFamily(f domain.Family) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.FamilyID == "" {
		f.FamilyID = uuid.NewString()
	}
	m.families[f.FamilyID] = f
	return f.FamilyID
}

// PutCompanion seeds or replaces a companion
func (m *MemoryStore) PutCompanion(c domain.CompanionProfile) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CompanionID == "" {
		c.CompanionID = uuid.NewString()
	}
	if _, ok := m.companions[c.CompanionID]; !ok {
		m.companionSeq = append(m.companionSeq, c.CompanionID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = m.now()
	m.companions[c.CompanionID] = c
	return c.CompanionID
}

// ---- seniors ----

func (m *MemoryStore) GetSenior(_ context.Context, seniorID string) (*domain.SeniorProfile, error) {
	if seniorID == "" {
		return nil, domain.InvalidArgument("get senior", "senior_id is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.seniors[seniorID]
	if !ok {
		return nil, domain.NotFound("get senior", "senior %s not found", seniorID)
	}
	return &s, nil
}

func (m *MemoryStore) UpsertSenior(_ context.Context, senior *domain.SeniorProfile) (string, error) {
	if senior.FamilyID == "" {
		return "", domain.InvalidArgument("upsert senior", "family_id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if senior.SeniorID == "" {
		senior.SeniorID = uuid.NewString()
	}
	now := m.now()
	s := *senior
	if prev, ok := m.seniors[s.SeniorID]; ok {
		if prev.FamilyID != s.FamilyID {
			return "", domain.Unauthorized("upsert senior", "senior %s belongs to another family", s.SeniorID)
		}
		s.CompanionID = prev.CompanionID
		s.CreatedAt = prev.CreatedAt
	} else {
		s.CompanionID = ""
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.seniors[s.SeniorID] = s
	return s.SeniorID, nil
}

func (m *MemoryStore) GetFamily(_ context.Context, familyID string) (*domain.Family, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.families[familyID]
	if !ok {
		return nil, domain.NotFound("get family", "family %s not found", familyID)
	}
	return &f, nil
}

// ---- companions ----

func (m *MemoryStore) GetCompanion(_ context.Context, companionID string) (*domain.CompanionProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companions[companionID]
	if !ok {
		return nil, domain.NotFound("get companion", "companion %s not found", companionID)
	}
	return &c, nil
}

func (m *MemoryStore) ListCompanions(_ context.Context, filters CompanionFilters) ([]*domain.CompanionProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.CompanionProfile{}
	for _, id := range m.companionSeq {
		c := m.companions[id]
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryStore) UpdateCompanionStatus(_ context.Context, companionID string, status domain.CompanionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companions[companionID]
	if !ok {
		return domain.NotFound("update companion status", "companion %s not found", companionID)
	}
	c.Status = status
	c.UpdatedAt = m.now()
	m.companions[companionID] = c
	return nil
}

// ---- matches ----

func (m *MemoryStore) GetMatch(_ context.Context, matchID string) (*domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return nil, domain.NotFound("get match", "match %s not found", matchID)
	}
	return &mt, nil
}

func (m *MemoryStore) ListMatchesForSenior(_ context.Context, seniorID string) ([]*domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Match{}
	for _, mt := range m.matches {
		if mt.SeniorID != seniorID {
			continue
		}
		mt := mt
		out = append(out, &mt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].KindredScore != out[j].KindredScore {
			return out[i].KindredScore > out[j].KindredScore
		}
		if !out[i].ProposedAt.Equal(out[j].ProposedAt) {
			return out[i].ProposedAt.Before(out[j].ProposedAt)
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out, nil
}

func (m *MemoryStore) findPair(seniorID, companionID string) (domain.Match, bool) {
	for _, mt := range m.matches {
		if mt.SeniorID == seniorID && mt.CompanionID == companionID {
			return mt, true
		}
	}
	return domain.Match{}, false
}

func (m *MemoryStore) UpsertProposedMatches(_ context.Context, seniorID string, results []domain.MatchResult, at time.Time) error {
	if len(results) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// validate the whole batch before the first write
	if _, ok := m.seniors[seniorID]; !ok {
		return domain.NotFound("propose matches", "senior %s not found", seniorID)
	}
	for _, res := range results {
		if _, ok := m.companions[res.CompanionID]; !ok {
			return domain.NotFound("propose matches", "companion %s not found", res.CompanionID)
		}
	}

	for _, res := range results {
		reasons := append([]string{}, res.MatchReasons...)
		if existing, ok := m.findPair(seniorID, res.CompanionID); ok {
			if existing.Status != domain.MatchProposed {
				continue
			}
			existing.KindredScore = res.KindredScore
			existing.MatchReasons = reasons
			existing.ProposedAt = at
			m.matches[existing.MatchID] = existing
			continue
		}
		id := uuid.NewString()
		m.matches[id] = domain.Match{
			MatchID:      id,
			SeniorID:     seniorID,
			CompanionID:  res.CompanionID,
			KindredScore: res.KindredScore,
			MatchReasons: reasons,
			Status:       domain.MatchProposed,
			ProposedAt:   at,
		}
	}
	return nil
}

func (m *MemoryStore) AcceptMatch(_ context.Context, matchID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return domain.NotFound("accept match", "match %s not found", matchID)
	}
	senior, ok := m.seniors[mt.SeniorID]
	if !ok {
		return domain.NotFound("accept match", "senior %s not found", mt.SeniorID)
	}
	if err := mt.Accept(at); err != nil {
		return err
	}
	senior.CompanionID = mt.CompanionID
	senior.UpdatedAt = at
	m.matches[matchID] = mt
	m.seniors[senior.SeniorID] = senior
	return nil
}

func (m *MemoryStore) RejectMatch(_ context.Context, matchID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return domain.NotFound("reject match", "match %s not found", matchID)
	}
	if err := mt.Reject(at); err != nil {
		return err
	}
	m.matches[matchID] = mt
	return nil
}

// ---- visits ----

func (m *MemoryStore) GetVisit(_ context.Context, visitID string) (*domain.Visit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visits[visitID]
	if !ok {
		return nil, domain.NotFound("get visit", "visit %s not found", visitID)
	}
	return &v, nil
}

func (m *MemoryStore) CreateVisit(_ context.Context, visit *domain.Visit) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seniors[visit.SeniorID]; !ok {
		return "", domain.NotFound("create visit", "senior %s not found", visit.SeniorID)
	}
	if _, ok := m.companions[visit.CompanionID]; !ok {
		return "", domain.NotFound("create visit", "companion %s not found", visit.CompanionID)
	}
	if visit.VisitID == "" {
		visit.VisitID = uuid.NewString()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = m.now()
	}
	m.visits[visit.VisitID] = *visit
	return visit.VisitID, nil
}

func (m *MemoryStore) ListVisits(_ context.Context, filters VisitFilters) ([]*domain.Visit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Visit{}
	for _, v := range m.visits {
		if filters.SeniorID != "" && v.SeniorID != filters.SeniorID {
			continue
		}
		if filters.CompanionID != "" && v.CompanionID != filters.CompanionID {
			continue
		}
		if filters.PayoutID != "" && v.PayoutID != filters.PayoutID {
			continue
		}
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		v := v
		out = append(out, &v)
	}
	sortVisits(out)
	return out, nil
}

func sortVisits(vs []*domain.Visit) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].ScheduledAt.Equal(vs[j].ScheduledAt) {
			return vs[i].ScheduledAt.Before(vs[j].ScheduledAt)
		}
		return vs[i].VisitID < vs[j].VisitID
	})
}

func (m *MemoryStore) SaveVisitTransition(_ context.Context, v *domain.Visit, from domain.VisitStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.visits[v.VisitID]
	if !ok {
		return domain.NotFound("save visit", "visit %s not found", v.VisitID)
	}
	if cur.Status != from {
		return domain.InvalidState("save visit", "visit %s is no longer %s", v.VisitID, from)
	}
	next := *v
	// payout linkage is owned by the payout run
	next.PayoutID = cur.PayoutID
	next.BilledHours = cur.BilledHours
	m.visits[v.VisitID] = next
	return nil
}

// ---- payouts ----

func (m *MemoryStore) CreatePayoutForUnpaidVisits(_ context.Context, companionID string, start, end time.Time, build PayoutBuilder) (*domain.Payout, []*domain.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimed []*domain.Visit
	for _, v := range m.visits {
		if v.CompanionID != companionID || v.Status != domain.VisitCompleted || v.PayoutID != "" {
			continue
		}
		if v.ScheduledAt.Before(start) || v.ScheduledAt.After(end) {
			continue
		}
		v := v
		claimed = append(claimed, &v)
	}
	if len(claimed) == 0 {
		return nil, nil, nil
	}
	sortVisits(claimed)

	p, err := build(claimed)
	if err != nil {
		return nil, nil, err
	}
	if p.PayoutID == "" {
		p.PayoutID = uuid.NewString()
	}
	m.payouts[p.PayoutID] = *p

	billed := decimal.NullDecimal{Decimal: p.TotalHours, Valid: true}
	for _, v := range claimed {
		v.PayoutID = p.PayoutID
		v.BilledHours = billed
		m.visits[v.VisitID] = *v
	}
	return p, claimed, nil
}

func (m *MemoryStore) finishPayout(op, payoutID string, apply func(p *domain.Payout)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[payoutID]
	if !ok {
		return domain.NotFound(op, "payout %s not found", payoutID)
	}
	if p.Status != domain.PayoutProcessing {
		return domain.InvalidState(op, "payout %s is not PROCESSING", payoutID)
	}
	apply(&p)
	m.payouts[payoutID] = p
	return nil
}

func (m *MemoryStore) MarkPayoutPaid(_ context.Context, payoutID, transferRef string, paidAt time.Time) error {
	return m.finishPayout("mark payout paid", payoutID, func(p *domain.Payout) {
		p.Status = domain.PayoutPaid
		p.TransferRef = transferRef
		p.PaidAt = &paidAt
		p.FailureReason = ""
	})
}

func (m *MemoryStore) MarkPayoutFailed(_ context.Context, payoutID, reason string) error {
	return m.finishPayout("mark payout failed", payoutID, func(p *domain.Payout) {
		p.Status = domain.PayoutFailed
		p.FailureReason = reason
	})
}

func (m *MemoryStore) GetPayout(_ context.Context, payoutID string) (*domain.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payouts[payoutID]
	if !ok {
		return nil, domain.NotFound("get payout", "payout %s not found", payoutID)
	}
	return &p, nil
}

func (m *MemoryStore) ListPayouts(_ context.Context, companionID string) ([]*domain.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Payout{}
	for _, p := range m.payouts {
		if p.CompanionID != companionID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PayoutID < out[j].PayoutID
	})
	return out, nil
}
