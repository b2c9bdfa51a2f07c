package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func completedVisit(actual *int, planned int) *Visit {
	return &Visit{Status: VisitCompleted, DurationMin: planned, ActualMinutes: actual}
}

func intPtr(i int) *int { return &i }

func TestPayoutPolicy_Compute_ReferenceExample(t *testing.T) {
	policy := NewPayoutPolicy(2600, 0.10)
	visits := []*Visit{
		completedVisit(intPtr(120), 60),
		completedVisit(intPtr(120), 60),
		completedVisit(intPtr(120), 60),
	}

	a := policy.Compute(visits)

	assert.Equal(t, int64(360), a.TotalMinutes)
	assert.True(t, decimal.NewFromInt(6).Equal(a.TotalHours))
	assert.Equal(t, int64(15600), a.GrossCents)
	assert.Equal(t, int64(1560), a.FeeCents)
	assert.Equal(t, int64(14040), a.NetCents)
}

func TestPayoutPolicy_Compute_FallsBackToPlannedDuration(t *testing.T) {
	policy := NewPayoutPolicy(2600, 0.10)
	a := policy.Compute([]*Visit{completedVisit(nil, 90), completedVisit(intPtr(30), 90)})

	assert.Equal(t, int64(120), a.TotalMinutes)
	assert.Equal(t, int64(5200), a.GrossCents)
	assert.Equal(t, int64(520), a.FeeCents)
	assert.Equal(t, int64(4680), a.NetCents)
}

func TestPayoutPolicy_Compute_Rounding(t *testing.T) {
	policy := NewPayoutPolicy(2600, 0.10)
	// 7 minutes = 0.11666.. h -> 303.33 cents -> 303; fee 30.3 -> 30
	a := policy.Compute([]*Visit{completedVisit(intPtr(7), 0)})
	assert.Equal(t, int64(303), a.GrossCents)
	assert.Equal(t, int64(30), a.FeeCents)
	assert.Equal(t, int64(273), a.NetCents)
	assert.Equal(t, "0.1167", a.TotalHours.String())

	// 45 minutes at 2550 -> 1912.5 -> 1913 (half up); fee 191.3 -> 191
	policy = NewPayoutPolicy(2550, 0.10)
	a = policy.Compute([]*Visit{completedVisit(intPtr(45), 0)})
	assert.Equal(t, int64(1913), a.GrossCents)
	assert.Equal(t, int64(191), a.FeeCents)
	assert.Equal(t, a.GrossCents-a.FeeCents, a.NetCents)
}

func TestPayoutPolicy_Compute_Empty(t *testing.T) {
	a := NewPayoutPolicy(2600, 0.10).Compute(nil)
	assert.Equal(t, int64(0), a.GrossCents)
	assert.Equal(t, int64(0), a.NetCents)
}

func TestNewPayout(t *testing.T) {
	now := time.Now()
	a := PayoutAmounts{TotalHours: decimal.NewFromInt(6), GrossCents: 15600, FeeCents: 1560, NetCents: 14040}
	p := NewPayout("p-1", "c-1", now.Add(-24*time.Hour), now, 3, 2600, a, now)
	assert.Equal(t, PayoutProcessing, p.Status)
	assert.Equal(t, 3, p.VisitCount)
	assert.Equal(t, int64(14040), p.NetAmountCents)
}
