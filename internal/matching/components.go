package matching

import (
	"fmt"
	"math"
	"strings"

	"juni-core/internal/domain"
)

// Social style answers from the vibe check that the communication component reads
const (
	StyleOneOnOne       = "Prefers one-on-one over groups"
	StyleSharedActivity = "Opens up over a shared activity"
)

// Pair is the input every component sees. SharedInterests is computed once
// per pair before any component runs.
type Pair struct {
	Senior          *domain.SeniorProfile
	Companion       *domain.CompanionProfile
	SharedInterests []string
}

// Component one weighted dimension of the Kindred score. Score returns raw
// points (the engine caps them at Weight) and an optional display reason.
type Component interface {
	Name() string
	Weight() float64
	Score(p *Pair) (float64, string)
}

// DefaultComponents the five-dimension Kindred formula, in reason order
func DefaultComponents() []Component {
	return []Component{
		SharedInterests{},
		SeniorPersonality{},
		CommunicationStyle{},
		CompanionQualities{},
		PracticalFactors{},
	}
}

// sharedInterests returns senior interests whose first word appears
// (case-insensitively) inside any companion interest, in senior order.
func sharedInterests(senior *domain.SeniorProfile, companion *domain.CompanionProfile) []string {
	var shared []string
	for _, interest := range senior.Interests {
		words := strings.Fields(strings.ToLower(interest))
		if len(words) == 0 {
			continue
		}
		key := words[0]
		for _, ci := range companion.Interests {
			if strings.Contains(strings.ToLower(ci), key) {
				shared = append(shared, interest)
				break
			}
		}
	}
	return shared
}

// SharedInterests weight 40: share of senior interests the companion covers
type SharedInterests struct{}

func (SharedInterests) Name() string    { return "shared_interests" }
func (SharedInterests) Weight() float64 { return 40 }

func (SharedInterests) Score(p *Pair) (float64, string) {
	total := len(p.Senior.Interests)
	if total < 1 {
		total = 1
	}
	n := len(p.SharedInterests)
	score := float64(n) / float64(total) * 40

	switch {
	case n == 1:
		return score, fmt.Sprintf("Shares an interest in %s", strings.ToLower(p.SharedInterests[0]))
	case n > 1:
		return score, fmt.Sprintf("Shares %d interests including %s", n, strings.ToLower(p.SharedInterests[0]))
	}
	return score, ""
}

// SeniorPersonality weight 25. Only the senior side is modeled: Agreeableness
// stands in for compatibility until companions carry a trait vector.
type SeniorPersonality struct{}

func (SeniorPersonality) Name() string    { return "personality" }
func (SeniorPersonality) Weight() float64 { return 25 }

func (SeniorPersonality) Score(p *Pair) (float64, string) {
	pers := p.Senior.Personality
	if pers.IsEmpty() {
		return 12, ""
	}
	agree := 50
	if pers.Agreeableness != nil {
		agree = *pers.Agreeableness
	}
	score := math.Round(8 + float64(agree)/100*17)
	switch {
	case score > 18:
		return score, "Strong personality compatibility"
	case score > 12:
		return score, "Good personality fit"
	}
	return score, ""
}

// CommunicationStyle weight 15
type CommunicationStyle struct{}

func (CommunicationStyle) Name() string    { return "communication" }
func (CommunicationStyle) Weight() float64 { return 15 }

func (CommunicationStyle) Score(p *Pair) (float64, string) {
	score := 10.0
	if p.Senior.HasSocialStyle(StyleOneOnOne) {
		score += 5
	}
	if p.Senior.HasSocialStyle(StyleSharedActivity) && len(p.SharedInterests) > 0 {
		score += 3
	}
	return score, ""
}

// CompanionQualities weight 10: 2 points per quality the family asked for
type CompanionQualities struct{}

func (CompanionQualities) Name() string    { return "companion_qualities" }
func (CompanionQualities) Weight() float64 { return 10 }

func (CompanionQualities) Score(p *Pair) (float64, string) {
	n := len(p.Senior.CompanionQualities)
	score := float64(n * 2)
	if n >= 3 {
		return score, "Matches the companion qualities your family is looking for"
	}
	return score, ""
}

// PracticalFactors weight 10: availability and same state
type PracticalFactors struct{}

func (PracticalFactors) Name() string    { return "practical" }
func (PracticalFactors) Weight() float64 { return 10 }

func (PracticalFactors) Score(p *Pair) (float64, string) {
	score := 5.0
	if a := p.Companion.Availability; a != "" && a != domain.AvailabilityWeekends {
		score += 3
	}
	if st := p.Senior.State(); st != "" && strings.EqualFold(st, strings.TrimSpace(p.Companion.State)) {
		return score + 2, fmt.Sprintf("Lives nearby in %s", st)
	}
	return score, ""
}
