package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus payout lifecycle: PROCESSING -> PAID | FAILED
type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutPaid       PayoutStatus = "PAID"
	PayoutFailed     PayoutStatus = "FAILED"
)

// Payout one aggregated payment to a companion (payouts table)
type Payout struct {
	PayoutID         string
	CompanionID      string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	VisitCount       int
	TotalHours       decimal.Decimal
	HourlyRateCents  int64
	GrossAmountCents int64
	PlatformFeeCents int64
	NetAmountCents   int64
	Status           PayoutStatus
	TransferRef      string
	FailureReason    string
	PaidAt           *time.Time
	CreatedAt        time.Time
}

// PayoutPolicy rate and fee applied to billable hours
type PayoutPolicy struct {
	HourlyRateCents int64
	PlatformFeePct  decimal.Decimal
}

// NewPayoutPolicy builds a policy from plain config values
func NewPayoutPolicy(hourlyRateCents int64, platformFeePct float64) PayoutPolicy {
	return PayoutPolicy{
		HourlyRateCents: hourlyRateCents,
		PlatformFeePct:  decimal.NewFromFloat(platformFeePct),
	}
}

// PayoutAmounts arithmetic result for one set of visits
type PayoutAmounts struct {
	TotalMinutes int64
	TotalHours   decimal.Decimal
	GrossCents   int64
	FeeCents     int64
	NetCents     int64
}

var sixty = decimal.NewFromInt(60)

// Compute totals billable time over visits and applies rate and fee:
//
//	gross = round(totalHours * rate), fee = round(gross * pct), net = gross - fee
//
// Hours are kept exact (minutes/60 in decimal) so no float drift reaches
// the rounding step. Rounding is half away from zero.
func (p PayoutPolicy) Compute(visits []*Visit) PayoutAmounts {
	var minutes int64
	for _, v := range visits {
		minutes += int64(v.BillableMinutes())
	}
	hours := decimal.NewFromInt(minutes).Div(sixty)
	gross := decimal.NewFromInt(minutes).
		Mul(decimal.NewFromInt(p.HourlyRateCents)).
		Div(sixty).
		Round(0).
		IntPart()
	fee := decimal.NewFromInt(gross).Mul(p.PlatformFeePct).Round(0).IntPart()
	return PayoutAmounts{
		TotalMinutes: minutes,
		TotalHours:   hours.Round(4),
		GrossCents:   gross,
		FeeCents:     fee,
		NetCents:     gross - fee,
	}
}

// NewPayout a PROCESSING payout for the given amounts
func NewPayout(id, companionID string, start, end time.Time, visitCount int, rate int64, a PayoutAmounts, now time.Time) *Payout {
	return &Payout{
		PayoutID:         id,
		CompanionID:      companionID,
		PeriodStart:      start,
		PeriodEnd:        end,
		VisitCount:       visitCount,
		TotalHours:       a.TotalHours,
		HourlyRateCents:  rate,
		GrossAmountCents: a.GrossCents,
		PlatformFeeCents: a.FeeCents,
		NetAmountCents:   a.NetCents,
		Status:           PayoutProcessing,
		CreatedAt:        now,
	}
}
