package httpapi

import (
	"time"

	"juni-core/internal/domain"
)

// wire formats; domain types carry no json tags

type seniorJSON struct {
	SeniorID           string             `json:"senior_id"`
	FamilyID           string             `json:"family_id"`
	DisplayName        string             `json:"display_name"`
	Interests          []string           `json:"interests"`
	CompanionQualities []string           `json:"companion_qualities"`
	SocialStyle        []string           `json:"social_style"`
	Personality        domain.Personality `json:"personality"`
	Location           string             `json:"location"`
	Conditions         []string           `json:"conditions"`
	CompanionID        string             `json:"companion_id,omitempty"`
}

func toSeniorJSON(s *domain.SeniorProfile) seniorJSON {
	return seniorJSON{
		SeniorID:           s.SeniorID,
		FamilyID:           s.FamilyID,
		DisplayName:        s.DisplayName,
		Interests:          nonNil(s.Interests),
		CompanionQualities: nonNil(s.CompanionQualities),
		SocialStyle:        nonNil(s.SocialStyle),
		Personality:        s.Personality,
		Location:           s.Location,
		Conditions:         nonNil(s.Conditions),
		CompanionID:        s.CompanionID,
	}
}

func (j seniorJSON) toDomain() domain.SeniorProfile {
	return domain.SeniorProfile{
		SeniorID:           j.SeniorID,
		FamilyID:           j.FamilyID,
		DisplayName:        j.DisplayName,
		Interests:          j.Interests,
		CompanionQualities: j.CompanionQualities,
		SocialStyle:        j.SocialStyle,
		Personality:        j.Personality,
		Location:           j.Location,
		Conditions:         j.Conditions,
	}
}

type companionJSON struct {
	CompanionID  string   `json:"companion_id"`
	DisplayName  string   `json:"display_name"`
	Interests    []string `json:"interests"`
	Availability string   `json:"availability,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Status       string   `json:"status"`
}

func toCompanionJSON(c *domain.CompanionProfile) companionJSON {
	return companionJSON{
		CompanionID:  c.CompanionID,
		DisplayName:  c.DisplayName,
		Interests:    nonNil(c.Interests),
		Availability: string(c.Availability),
		City:         c.City,
		State:        c.State,
		Status:       string(c.Status),
	}
}

type matchJSON struct {
	MatchID      string     `json:"match_id"`
	SeniorID     string     `json:"senior_id"`
	CompanionID  string     `json:"companion_id"`
	KindredScore int        `json:"kindred_score"`
	MatchReasons []string   `json:"match_reasons"`
	Status       string     `json:"status"`
	ProposedAt   time.Time  `json:"proposed_at"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
}

func toMatchJSON(m *domain.Match) matchJSON {
	return matchJSON{
		MatchID:      m.MatchID,
		SeniorID:     m.SeniorID,
		CompanionID:  m.CompanionID,
		KindredScore: m.KindredScore,
		MatchReasons: nonNil(m.MatchReasons),
		Status:       string(m.Status),
		ProposedAt:   m.ProposedAt,
		AcceptedAt:   m.AcceptedAt,
		RejectedAt:   m.RejectedAt,
	}
}

type visitJSON struct {
	VisitID          string           `json:"visit_id"`
	SeniorID         string           `json:"senior_id"`
	CompanionID      string           `json:"companion_id"`
	ScheduledAt      time.Time        `json:"scheduled_at"`
	DurationMin      int              `json:"duration_min"`
	Status           string           `json:"status"`
	CheckInAt        *time.Time       `json:"check_in_at,omitempty"`
	CheckOutAt       *time.Time       `json:"check_out_at,omitempty"`
	CheckInLocation  *domain.GeoPoint `json:"check_in_location,omitempty"`
	CheckOutLocation *domain.GeoPoint `json:"check_out_location,omitempty"`
	ActualMinutes    *int             `json:"actual_minutes,omitempty"`
	Mood             string           `json:"mood,omitempty"`
	Activities       []string         `json:"activities"`
	Notes            string           `json:"notes,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CancelledBy      string           `json:"cancelled_by,omitempty"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	PayoutID         string           `json:"payout_id,omitempty"`
	BilledHours      *string          `json:"billed_hours,omitempty"`
}

func toVisitJSON(v *domain.Visit) visitJSON {
	out := visitJSON{
		VisitID:          v.VisitID,
		SeniorID:         v.SeniorID,
		CompanionID:      v.CompanionID,
		ScheduledAt:      v.ScheduledAt,
		DurationMin:      v.DurationMin,
		Status:           string(v.Status),
		CheckInAt:        v.CheckInAt,
		CheckOutAt:       v.CheckOutAt,
		CheckInLocation:  v.CheckInLocation,
		CheckOutLocation: v.CheckOutLocation,
		ActualMinutes:    v.ActualMinutes,
		Mood:             v.Mood,
		Activities:       nonNil(v.Activities),
		Notes:            v.Notes,
		CancelledAt:      v.CancelledAt,
		CancelledBy:      v.CancelledBy,
		CancelReason:     v.CancelReason,
		PayoutID:         v.PayoutID,
	}
	if v.BilledHours.Valid {
		h := v.BilledHours.Decimal.String()
		out.BilledHours = &h
	}
	return out
}

type payoutJSON struct {
	PayoutID         string     `json:"payout_id"`
	CompanionID      string     `json:"companion_id"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	VisitCount       int        `json:"visit_count"`
	TotalHours       string     `json:"total_hours"`
	HourlyRateCents  int64      `json:"hourly_rate_cents"`
	GrossAmountCents int64      `json:"gross_amount_cents"`
	PlatformFeeCents int64      `json:"platform_fee_cents"`
	NetAmountCents   int64      `json:"net_amount_cents"`
	Status           string     `json:"status"`
	TransferRef      string     `json:"transfer_ref,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toPayoutJSON(p *domain.Payout) payoutJSON {
	return payoutJSON{
		PayoutID:         p.PayoutID,
		CompanionID:      p.CompanionID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		VisitCount:       p.VisitCount,
		TotalHours:       p.TotalHours.String(),
		HourlyRateCents:  p.HourlyRateCents,
		GrossAmountCents: p.GrossAmountCents,
		PlatformFeeCents: p.PlatformFeeCents,
		NetAmountCents:   p.NetAmountCents,
		Status:           string(p.Status),
		TransferRef:      p.TransferRef,
		FailureReason:    p.FailureReason,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
