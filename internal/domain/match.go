package domain

import "time"

// MatchStatus match lifecycle state. ACCEPTED is transitional and is
// treated like ACTIVE for eligibility.
type MatchStatus string

const (
	MatchProposed MatchStatus = "PROPOSED"
	MatchAccepted MatchStatus = "ACCEPTED"
	MatchActive   MatchStatus = "ACTIVE"
	MatchRejected MatchStatus = "REJECTED"
)

// MatchResult one scored candidate produced by the matching engine
type MatchResult struct {
	CompanionID  string   `json:"companion_id"`
	KindredScore int      `json:"kindred_score"`
	MatchReasons []string `json:"match_reasons"`
}

// Match persisted proposal between a senior and a companion (matches table).
// (SeniorID, CompanionID) is unique.
type Match struct {
	MatchID      string
	SeniorID     string
	CompanionID  string
	KindredScore int
	MatchReasons []string
	Status       MatchStatus
	ProposedAt   time.Time
	AcceptedAt   *time.Time
	RejectedAt   *time.Time
}

// Open reports whether the match still links the pair (proposed or live)
func (m *Match) Open() bool {
	switch m.Status {
	case MatchProposed, MatchAccepted, MatchActive:
		return true
	}
	return false
}

// Accept moves PROPOSED (or transitional ACCEPTED) to ACTIVE
func (m *Match) Accept(now time.Time) error {
	if m.Status != MatchProposed && m.Status != MatchAccepted {
		return InvalidState("accept match", "match %s is %s and cannot be accepted", m.MatchID, m.Status)
	}
	m.Status = MatchActive
	m.AcceptedAt = &now
	return nil
}

// Reject moves PROPOSED to REJECTED. Rejection is permanent for the pair.
func (m *Match) Reject(now time.Time) error {
	if m.Status != MatchProposed {
		return InvalidState("reject match", "match %s is %s and cannot be rejected", m.MatchID, m.Status)
	}
	m.Status = MatchRejected
	m.RejectedAt = &now
	return nil
}
