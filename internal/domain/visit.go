package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// VisitStatus visit lifecycle
//
//	SCHEDULED/CONFIRMED --check-in--> IN_PROGRESS --check-out--> COMPLETED
//	any non-terminal state --cancel--> CANCELLED
type VisitStatus string

const (
	VisitScheduled  VisitStatus = "SCHEDULED"
	VisitConfirmed  VisitStatus = "CONFIRMED"
	VisitInProgress VisitStatus = "IN_PROGRESS"
	VisitCompleted  VisitStatus = "COMPLETED"
	VisitCancelled  VisitStatus = "CANCELLED"
)

// Terminal reports COMPLETED or CANCELLED
func (s VisitStatus) Terminal() bool {
	return s == VisitCompleted || s == VisitCancelled
}

// GeoPoint optional coordinates captured at check-in/check-out
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Visit one companion visit (visits table)
type Visit struct {
	VisitID          string
	SeniorID         string
	CompanionID      string
	ScheduledAt      time.Time
	DurationMin      int // planned
	Status           VisitStatus
	CheckInAt        *time.Time
	CheckOutAt       *time.Time
	CheckInLocation  *GeoPoint
	CheckOutLocation *GeoPoint
	ActualMinutes    *int
	Mood             string
	Activities       []string
	Notes            string
	CancelledAt      *time.Time
	CancelledBy      string
	CancelReason     string
	PayoutID         string // empty until aggregated into a payout
	BilledHours      decimal.NullDecimal
	CreatedAt        time.Time
}

// CheckOutDetails data recorded when the companion checks out
type CheckOutDetails struct {
	Location   *GeoPoint
	Mood       string
	Activities []string
	Notes      string
}

// Confirm SCHEDULED -> CONFIRMED
func (v *Visit) Confirm() error {
	if v.Status != VisitScheduled {
		return InvalidState("confirm visit", "visit cannot be confirmed in its current state (%s)", v.Status)
	}
	v.Status = VisitConfirmed
	return nil
}

// CheckIn SCHEDULED|CONFIRMED -> IN_PROGRESS
func (v *Visit) CheckIn(now time.Time, loc *GeoPoint) error {
	if v.Status != VisitScheduled && v.Status != VisitConfirmed {
		return InvalidState("check in visit", "visit cannot be checked into in its current state (%s)", v.Status)
	}
	v.Status = VisitInProgress
	v.CheckInAt = &now
	v.CheckInLocation = loc
	return nil
}

// CheckOut IN_PROGRESS -> COMPLETED and derives ActualMinutes.
// A visit that was never checked into fails with a precondition error
// before the state guard is considered.
func (v *Visit) CheckOut(now time.Time, d CheckOutDetails) error {
	if v.CheckInAt == nil {
		return Precondition("check out visit", "visit has not been checked into")
	}
	if v.Status != VisitInProgress {
		return InvalidState("check out visit", "visit cannot be checked out of in its current state (%s)", v.Status)
	}
	minutes := ElapsedMinutes(*v.CheckInAt, now)
	v.Status = VisitCompleted
	v.CheckOutAt = &now
	v.CheckOutLocation = d.Location
	v.ActualMinutes = &minutes
	v.Mood = d.Mood
	v.Activities = d.Activities
	v.Notes = d.Notes
	return nil
}

// Cancel any non-terminal state -> CANCELLED
func (v *Visit) Cancel(now time.Time, by, reason string) error {
	if v.Status.Terminal() {
		return InvalidState("cancel visit", "visit cannot be cancelled in its current state (%s)", v.Status)
	}
	v.Status = VisitCancelled
	v.CancelledAt = &now
	v.CancelledBy = by
	v.CancelReason = reason
	return nil
}

// BillableMinutes actual minutes when recorded, planned duration otherwise
func (v *Visit) BillableMinutes() int {
	if v.ActualMinutes != nil {
		return *v.ActualMinutes
	}
	return v.DurationMin
}

// ElapsedMinutes whole minutes between two instants, half-minutes round up.
// Clock skew producing a negative span yields 0.
func ElapsedMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Minutes() + 0.5))
}
