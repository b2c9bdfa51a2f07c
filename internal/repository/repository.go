package repository

import (
	"context"
	"time"

	"juni-core/internal/domain"
)

// SeniorsRepository seniors + families
type SeniorsRepository interface {
	GetSenior(ctx context.Context, seniorID string) (*domain.SeniorProfile, error)
	UpsertSenior(ctx context.Context, senior *domain.SeniorProfile) (string, error)
	GetFamily(ctx context.Context, familyID string) (*domain.Family, error)
}

// CompanionFilters companion list filters; zero value lists everything
type CompanionFilters struct {
	Status domain.CompanionStatus
}

// CompanionsRepository companions table
type CompanionsRepository interface {
	GetCompanion(ctx context.Context, companionID string) (*domain.CompanionProfile, error)
	ListCompanions(ctx context.Context, filters CompanionFilters) ([]*domain.CompanionProfile, error)
	UpdateCompanionStatus(ctx context.Context, companionID string, status domain.CompanionStatus) error
}

// MatchesRepository matches table. AcceptMatch is the only multi-row write
// and runs in one transaction.
type MatchesRepository interface {
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	ListMatchesForSenior(ctx context.Context, seniorID string) ([]*domain.Match, error)

	// UpsertProposedMatches inserts or refreshes PROPOSED rows keyed by
	// (senior_id, companion_id), all-or-nothing. ACTIVE and REJECTED rows
	// for a pair are left untouched.
	UpsertProposedMatches(ctx context.Context, seniorID string, results []domain.MatchResult, at time.Time) error

	// AcceptMatch sets the match ACTIVE and assigns its companion to the
	// senior. Both writes commit together or not at all.
	AcceptMatch(ctx context.Context, matchID string, at time.Time) error

	RejectMatch(ctx context.Context, matchID string, at time.Time) error
}

// VisitFilters visit list filters
type VisitFilters struct {
	SeniorID    string
	CompanionID string
	PayoutID    string
	Status      domain.VisitStatus
}

// VisitsRepository visits table
type VisitsRepository interface {
	GetVisit(ctx context.Context, visitID string) (*domain.Visit, error)
	CreateVisit(ctx context.Context, visit *domain.Visit) (string, error)
	ListVisits(ctx context.Context, filters VisitFilters) ([]*domain.Visit, error)

	// SaveVisitTransition persists a state change made on v, guarded by the
	// status the caller loaded (from). A concurrent transition makes the
	// guard miss and the call fails with domain.ErrInvalidState.
	SaveVisitTransition(ctx context.Context, v *domain.Visit, from domain.VisitStatus) error
}

// PayoutBuilder turns the claimed visits into a PROCESSING payout. It runs
// inside the claiming transaction and must not do I/O.
type PayoutBuilder func(visits []*domain.Visit) (*domain.Payout, error)

// PayoutsRepository payouts table
type PayoutsRepository interface {
	// CreatePayoutForUnpaidVisits selects COMPLETED visits of the companion
	// with no payout and scheduled_at in [start, end], builds the payout and
	// links the visits (payout_id, billed_hours) in one transaction. It
	// returns (nil, nil, nil) when nothing is unpaid.
	CreatePayoutForUnpaidVisits(ctx context.Context, companionID string, start, end time.Time, build PayoutBuilder) (*domain.Payout, []*domain.Visit, error)

	MarkPayoutPaid(ctx context.Context, payoutID, transferRef string, paidAt time.Time) error
	MarkPayoutFailed(ctx context.Context, payoutID, reason string) error

	GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error)
	ListPayouts(ctx context.Context, companionID string) ([]*domain.Payout, error)
}

// Store bundles the repositories the services need
type Store struct {
	Seniors    SeniorsRepository
	Companions CompanionsRepository
	Matches    MatchesRepository
	Visits     VisitsRepository
	Payouts    PayoutsRepository
}
