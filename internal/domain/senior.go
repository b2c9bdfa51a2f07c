package domain

import (
	"strings"
	"time"
)

// Family owns one or more seniors. OwnerUserID is the identity allowed to act on them.
type Family struct {
	FamilyID    string
	OwnerUserID string
	Name        string
}

// Personality Big Five trait scores (0-100) from the vibe check. Only
// Agreeableness feeds the Kindred score today.
type Personality struct {
	Agreeableness     *int `json:"agreeableness,omitempty"`
	Openness          *int `json:"openness,omitempty"`
	Conscientiousness *int `json:"conscientiousness,omitempty"`
	Extraversion      *int `json:"extraversion,omitempty"`
	Neuroticism       *int `json:"neuroticism,omitempty"`
}

// IsEmpty reports whether no trait was captured
func (p Personality) IsEmpty() bool {
	return p.Agreeableness == nil && p.Openness == nil && p.Conscientiousness == nil &&
		p.Extraversion == nil && p.Neuroticism == nil
}

// SeniorProfile senior attributes used by matching (seniors table)
type SeniorProfile struct {
	SeniorID           string
	FamilyID           string
	DisplayName        string
	Interests          []string
	CompanionQualities []string
	SocialStyle        []string
	Personality        Personality
	Location           string // free text "City, ST"
	Conditions         []string
	CompanionID        string // accepted companion, empty when none
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// State returns the trailing two-letter code after the last comma in
// Location, upper-cased, or "" when Location has no such suffix.
func (s *SeniorProfile) State() string {
	idx := strings.LastIndex(s.Location, ",")
	if idx < 0 {
		return ""
	}
	st := strings.TrimSpace(s.Location[idx+1:])
	if len(st) != 2 {
		return ""
	}
	return strings.ToUpper(st)
}

// HasSocialStyle is an exact, case-sensitive membership test
func (s *SeniorProfile) HasSocialStyle(style string) bool {
	for _, v := range s.SocialStyle {
		if v == style {
			return true
		}
	}
	return false
}
