package service

import (
	"context"
	"strings"

	"juni-core/internal/domain"
	"juni-core/internal/repository"

	"go.uber.org/zap"
)

// ProfileService senior (vibe check) and companion profile access
type ProfileService struct {
	seniors    repository.SeniorsRepository
	companions repository.CompanionsRepository
	owners     OwnershipChecker
	logger     *zap.Logger
}

func NewProfileService(store *repository.Store, owners OwnershipChecker, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		seniors:    store.Seniors,
		companions: store.Companions,
		owners:     owners,
		logger:     logger,
	}
}

// GetSenior returns the profile to its owning family only
func (s *ProfileService) GetSenior(ctx context.Context, seniorID, requesterID string) (*domain.SeniorProfile, error) {
	return s.owners.CheckSeniorOwner(ctx, requesterID, seniorID)
}

// UpsertSeniorRequest vibe-check submission
type UpsertSeniorRequest struct {
	RequesterID string
	Senior      domain.SeniorProfile
}

// UpsertSenior creates or updates a senior profile under the requester's family
func (s *ProfileService) UpsertSenior(ctx context.Context, req UpsertSeniorRequest) (string, error) {
	senior := req.Senior
	if senior.FamilyID == "" {
		return "", domain.InvalidArgument("upsert senior", "family_id is required")
	}
	if err := validatePersonality(senior.Personality); err != nil {
		return "", err
	}
	if err := s.owners.CheckFamilyOwner(ctx, req.RequesterID, senior.FamilyID); err != nil {
		return "", err
	}
	senior.Location = strings.TrimSpace(senior.Location)

	id, err := s.seniors.UpsertSenior(ctx, &senior)
	if err != nil {
		return "", err
	}
	s.logger.Info("Senior profile saved", zap.String("senior_id", id), zap.String("family_id", senior.FamilyID))
	return id, nil
}

func validatePersonality(p domain.Personality) error {
	for name, v := range map[string]*int{
		"agreeableness":     p.Agreeableness,
		"openness":          p.Openness,
		"conscientiousness": p.Conscientiousness,
		"extraversion":      p.Extraversion,
		"neuroticism":       p.Neuroticism,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return domain.InvalidArgument("upsert senior", "personality.%s must be between 0 and 100", name)
		}
	}
	return nil
}

func (s *ProfileService) GetCompanion(ctx context.Context, companionID string) (*domain.CompanionProfile, error) {
	return s.companions.GetCompanion(ctx, companionID)
}

func (s *ProfileService) ListCompanions(ctx context.Context, status domain.CompanionStatus) ([]*domain.CompanionProfile, error) {
	if status != "" && !status.Valid() {
		return nil, domain.InvalidArgument("list companions", "unknown companion status %q", status)
	}
	return s.companions.ListCompanions(ctx, repository.CompanionFilters{Status: status})
}

// UpdateCompanionStatus admin onboarding transition; only ACTIVE companions are matchable
func (s *ProfileService) UpdateCompanionStatus(ctx context.Context, companionID string, status domain.CompanionStatus) error {
	if !status.Valid() {
		return domain.InvalidArgument("update companion status", "unknown companion status %q", status)
	}
	if err := s.companions.UpdateCompanionStatus(ctx, companionID, status); err != nil {
		return err
	}
	s.logger.Info("Companion status updated", zap.String("companion_id", companionID), zap.String("status", string(status)))
	return nil
}
