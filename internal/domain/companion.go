package domain

import "time"

// CompanionStatus onboarding lifecycle; only ACTIVE companions are matchable
type CompanionStatus string

const (
	CompanionApplied     CompanionStatus = "APPLIED"
	CompanionScreening   CompanionStatus = "SCREENING"
	CompanionTraining    CompanionStatus = "TRAINING"
	CompanionActive      CompanionStatus = "ACTIVE"
	CompanionSuspended   CompanionStatus = "SUSPENDED"
	CompanionDeactivated CompanionStatus = "DEACTIVATED"
)

func (s CompanionStatus) Valid() bool {
	switch s {
	case CompanionApplied, CompanionScreening, CompanionTraining,
		CompanionActive, CompanionSuspended, CompanionDeactivated:
		return true
	}
	return false
}

// Availability companion's declared availability
type Availability string

const (
	AvailabilityFullTime Availability = "full-time"
	AvailabilityPartTime Availability = "part-time"
	AvailabilityFlexible Availability = "flexible"
	AvailabilityWeekends Availability = "weekends"
)

func (a Availability) Valid() bool {
	switch a {
	case "", AvailabilityFullTime, AvailabilityPartTime, AvailabilityFlexible, AvailabilityWeekends:
		return true
	}
	return false
}

// CompanionProfile companion (Fellow) record (companions table)
type CompanionProfile struct {
	CompanionID     string
	DisplayName     string
	Interests       []string
	Availability    Availability
	City            string
	State           string
	Status          CompanionStatus
	PayoutAccountID string // external connected-account id for transfers
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Matchable reports whether the companion may be offered to seniors
func (c *CompanionProfile) Matchable() bool {
	return c.Status == CompanionActive
}
