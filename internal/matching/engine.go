package matching

import (
	"math"
	"sort"

	"juni-core/internal/domain"
)

// DefaultLimit candidates returned when the caller passes limit <= 0
const DefaultLimit = 5

// Engine computes Kindred scores. It holds no state besides its component
// list, so identical inputs always yield identical output.
type Engine struct {
	components []Component
}

// NewEngine builds an engine; with no components it uses DefaultComponents
func NewEngine(components ...Component) *Engine {
	if len(components) == 0 {
		components = DefaultComponents()
	}
	return &Engine{components: components}
}

// Score computes the 0-100 Kindred score and the ordered match reasons for one pair
func (e *Engine) Score(senior *domain.SeniorProfile, companion *domain.CompanionProfile) domain.MatchResult {
	pair := &Pair{
		Senior:          senior,
		Companion:       companion,
		SharedInterests: sharedInterests(senior, companion),
	}

	var total float64
	reasons := []string{}
	for _, c := range e.components {
		pts, reason := c.Score(pair)
		total += math.Max(0, math.Min(c.Weight(), pts))
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	score := int(math.Round(math.Min(100, total)))
	return domain.MatchResult{
		CompanionID:  companion.CompanionID,
		KindredScore: score,
		MatchReasons: reasons,
	}
}

// Eligible filters the pool down to companions that may be proposed to the
// senior: ACTIVE status and no existing match of any status for the pair.
// Rejected pairs are excluded permanently.
func Eligible(seniorID string, pool []*domain.CompanionProfile, existing []*domain.Match) []*domain.CompanionProfile {
	linked := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		if m.SeniorID != seniorID {
			continue
		}
		if m.Open() || m.Status == domain.MatchRejected {
			linked[m.CompanionID] = struct{}{}
		}
	}

	out := make([]*domain.CompanionProfile, 0, len(pool))
	for _, c := range pool {
		if c == nil || !c.Matchable() {
			continue
		}
		if _, ok := linked[c.CompanionID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ComputeCandidates applies Eligible, scores every remaining companion and
// returns the top limit by score. Ties keep pool order.
func (e *Engine) ComputeCandidates(senior *domain.SeniorProfile, pool []*domain.CompanionProfile, existing []*domain.Match, limit int) []domain.MatchResult {
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := Eligible(senior.SeniorID, pool, existing)
	results := make([]domain.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, e.Score(senior, c))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].KindredScore > results[j].KindredScore
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
