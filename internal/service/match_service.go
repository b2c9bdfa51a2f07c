package service

import (
	"context"
	"time"

	"juni-core/internal/domain"
	"juni-core/internal/matching"
	"juni-core/internal/notify"
	"juni-core/internal/repository"

	"go.uber.org/zap"
)

// MatchService Kindred matching plus the match lifecycle
type MatchService struct {
	seniors      repository.SeniorsRepository
	companions   repository.CompanionsRepository
	matches      repository.MatchesRepository
	engine       *matching.Engine
	owners       OwnershipChecker
	notifier     notify.Notifier
	defaultLimit int
	now          func() time.Time
	logger       *zap.Logger
}

func NewMatchService(store *repository.Store, engine *matching.Engine, owners OwnershipChecker, notifier notify.Notifier, defaultLimit int, logger *zap.Logger) *MatchService {
	if defaultLimit <= 0 {
		defaultLimit = matching.DefaultLimit
	}
	return &MatchService{
		seniors:      store.Seniors,
		companions:   store.Companions,
		matches:      store.Matches,
		engine:       engine,
		owners:       owners,
		notifier:     notifier,
		defaultLimit: defaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// FindMatchesForSenior scores every eligible companion and returns the top
// limit. Read-only.
func (s *MatchService) FindMatchesForSenior(ctx context.Context, seniorID string, limit int) ([]domain.MatchResult, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	senior, err := s.seniors.GetSenior(ctx, seniorID)
	if err != nil {
		return nil, err
	}
	pool, err := s.companions.ListCompanions(ctx, repository.CompanionFilters{Status: domain.CompanionActive})
	if err != nil {
		return nil, err
	}
	existing, err := s.matches.ListMatchesForSenior(ctx, seniorID)
	if err != nil {
		return nil, err
	}

	results := s.engine.ComputeCandidates(senior, pool, existing, limit)
	s.logger.Debug("Computed match candidates",
		zap.String("senior_id", seniorID),
		zap.Int("pool_size", len(pool)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// ProposeMatches persists results as PROPOSED, idempotent per pair
func (s *MatchService) ProposeMatches(ctx context.Context, seniorID string, results []domain.MatchResult) error {
	if seniorID == "" {
		return domain.InvalidArgument("propose matches", "senior_id is required")
	}
	for _, r := range results {
		if r.CompanionID == "" {
			return domain.InvalidArgument("propose matches", "companion_id is required")
		}
		if r.KindredScore < 0 || r.KindredScore > 100 {
			return domain.InvalidArgument("propose matches", "kindred_score %d out of range", r.KindredScore)
		}
	}
	if len(results) == 0 {
		return nil
	}

	if err := s.matches.UpsertProposedMatches(ctx, seniorID, results, s.now()); err != nil {
		return err
	}
	s.logger.Info("Matches proposed", zap.String("senior_id", seniorID), zap.Int("count", len(results)))

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.CompanionID)
	}
	s.notifier.Notify(ctx, notify.Event{Type: notify.MatchProposed, Data: map[string]any{
		"senior_id":     seniorID,
		"companion_ids": ids,
	}})
	return nil
}

// ProposeForSenior find + propose in one call (signup flow)
func (s *MatchService) ProposeForSenior(ctx context.Context, seniorID string, limit int) ([]domain.MatchResult, error) {
	results, err := s.FindMatchesForSenior(ctx, seniorID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.ProposeMatches(ctx, seniorID, results); err != nil {
		return nil, err
	}
	return results, nil
}

// ListMatchesForSenior matches of a senior, best score first; owner only
func (s *MatchService) ListMatchesForSenior(ctx context.Context, seniorID, requesterID string) ([]*domain.Match, error) {
	if _, err := s.owners.CheckSeniorOwner(ctx, requesterID, seniorID); err != nil {
		return nil, err
	}
	return s.matches.ListMatchesForSenior(ctx, seniorID)
}

// loadOwnedMatch lookup and ownership failures surface before any write
func (s *MatchService) loadOwnedMatch(ctx context.Context, matchID, requesterID string) (*domain.Match, error) {
	m, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owners.CheckSeniorOwner(ctx, requesterID, m.SeniorID); err != nil {
		return nil, err
	}
	return m, nil
}

// AcceptMatch activates the match and assigns its companion to the senior
// in one transaction. Sibling proposals are left as they are.
func (s *MatchService) AcceptMatch(ctx context.Context, matchID, requesterID string) error {
	m, err := s.loadOwnedMatch(ctx, matchID, requesterID)
	if err != nil {
		return err
	}
	if err := s.matches.AcceptMatch(ctx, matchID, s.now()); err != nil {
		return err
	}

	s.logger.Info("Match accepted",
		zap.String("match_id", matchID),
		zap.String("senior_id", m.SeniorID),
		zap.String("companion_id", m.CompanionID),
	)
	s.notifier.Notify(ctx, notify.Event{Type: notify.MatchAccepted, Data: map[string]any{
		"match_id":     matchID,
		"senior_id":    m.SeniorID,
		"companion_id": m.CompanionID,
	}})
	return nil
}

// RejectMatch permanently excludes the pair from future proposals
func (s *MatchService) RejectMatch(ctx context.Context, matchID, requesterID string) error {
	m, err := s.loadOwnedMatch(ctx, matchID, requesterID)
	if err != nil {
		return err
	}
	if err := s.matches.RejectMatch(ctx, matchID, s.now()); err != nil {
		return err
	}

	s.logger.Info("Match rejected",
		zap.String("match_id", matchID),
		zap.String("senior_id", m.SeniorID),
		zap.String("companion_id", m.CompanionID),
	)
	s.notifier.Notify(ctx, notify.Event{Type: notify.MatchRejected, Data: map[string]any{
		"match_id":     matchID,
		"senior_id":    m.SeniorID,
		"companion_id": m.CompanionID,
	}})
	return nil
}
