package service

import (
	"context"
	"time"

	"juni-core/internal/domain"
	"juni-core/internal/notify"
	"juni-core/internal/repository"

	"go.uber.org/zap"
)

// VisitService visit state machine: request, confirm, check-in, check-out, cancel
type VisitService struct {
	visits     repository.VisitsRepository
	companions repository.CompanionsRepository
	owners     OwnershipChecker
	notifier   notify.Notifier
	now        func() time.Time
	logger     *zap.Logger
}

func NewVisitService(store *repository.Store, owners OwnershipChecker, notifier notify.Notifier, logger *zap.Logger) *VisitService {
	return &VisitService{
		visits:     store.Visits,
		companions: store.Companions,
		owners:     owners,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// RequestVisitRequest family books a visit with a companion
type RequestVisitRequest struct {
	RequesterID string
	SeniorID    string
	CompanionID string
	ScheduledAt time.Time
	DurationMin int
}

// RequestVisit creates a SCHEDULED visit
func (s *VisitService) RequestVisit(ctx context.Context, req RequestVisitRequest) (*domain.Visit, error) {
	if req.DurationMin <= 0 {
		return nil, domain.InvalidArgument("request visit", "duration_min must be positive")
	}
	if req.ScheduledAt.IsZero() {
		return nil, domain.InvalidArgument("request visit", "scheduled_at is required")
	}
	if _, err := s.owners.CheckSeniorOwner(ctx, req.RequesterID, req.SeniorID); err != nil {
		return nil, err
	}
	companion, err := s.companions.GetCompanion(ctx, req.CompanionID)
	if err != nil {
		return nil, err
	}
	if !companion.Matchable() {
		return nil, domain.Precondition("request visit", "companion is not active")
	}

	v := &domain.Visit{
		SeniorID:    req.SeniorID,
		CompanionID: req.CompanionID,
		ScheduledAt: req.ScheduledAt.UTC(),
		DurationMin: req.DurationMin,
		Status:      domain.VisitScheduled,
		CreatedAt:   s.now(),
	}
	if _, err := s.visits.CreateVisit(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("Visit requested",
		zap.String("visit_id", v.VisitID),
		zap.String("senior_id", v.SeniorID),
		zap.String("companion_id", v.CompanionID),
	)
	return v, nil
}

// loadCompanionVisit a visit assigned to someone else reads as absent
func (s *VisitService) loadCompanionVisit(ctx context.Context, op, visitID, companionID string) (*domain.Visit, error) {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v.CompanionID != companionID {
		return nil, domain.NotFound(op, "visit %s not found", visitID)
	}
	return v, nil
}

// ConfirmVisit companion accepts a SCHEDULED visit
func (s *VisitService) ConfirmVisit(ctx context.Context, visitID, companionID string) error {
	v, err := s.loadCompanionVisit(ctx, "confirm visit", visitID, companionID)
	if err != nil {
		return err
	}
	from := v.Status
	if err := v.Confirm(); err != nil {
		return err
	}
	if err := s.visits.SaveVisitTransition(ctx, v, from); err != nil {
		return err
	}
	s.logger.Info("Visit confirmed", zap.String("visit_id", visitID), zap.String("companion_id", companionID))
	return nil
}

// CheckInResult check-in timestamp
type CheckInResult struct {
	CheckInAt time.Time `json:"check_in_at"`
}

func (s *VisitService) CheckInVisit(ctx context.Context, visitID, companionID string, loc *domain.GeoPoint) (*CheckInResult, error) {
	v, err := s.loadCompanionVisit(ctx, "check in visit", visitID, companionID)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if err := v.CheckIn(s.now(), loc); err != nil {
		return nil, err
	}
	if err := s.visits.SaveVisitTransition(ctx, v, from); err != nil {
		return nil, err
	}

	s.logger.Info("Visit checked in", zap.String("visit_id", visitID), zap.String("companion_id", companionID))
	s.notifier.Notify(ctx, notify.Event{Type: notify.VisitCheckedIn, Data: map[string]any{
		"visit_id":     visitID,
		"senior_id":    v.SeniorID,
		"companion_id": companionID,
		"check_in_at":  v.CheckInAt,
	}})
	return &CheckInResult{CheckInAt: *v.CheckInAt}, nil
}

// CheckOutResult billable minutes recorded at check-out
type CheckOutResult struct {
	ActualMinutes int `json:"actual_minutes"`
}

func (s *VisitService) CheckOutVisit(ctx context.Context, visitID, companionID string, details domain.CheckOutDetails) (*CheckOutResult, error) {
	v, err := s.loadCompanionVisit(ctx, "check out visit", visitID, companionID)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if err := v.CheckOut(s.now(), details); err != nil {
		return nil, err
	}
	if err := s.visits.SaveVisitTransition(ctx, v, from); err != nil {
		return nil, err
	}

	s.logger.Info("Visit checked out",
		zap.String("visit_id", visitID),
		zap.String("companion_id", companionID),
		zap.Int("actual_minutes", *v.ActualMinutes),
	)
	s.notifier.Notify(ctx, notify.Event{Type: notify.VisitCheckedOut, Data: map[string]any{
		"visit_id":       visitID,
		"senior_id":      v.SeniorID,
		"companion_id":   companionID,
		"actual_minutes": *v.ActualMinutes,
		"mood":           v.Mood,
	}})
	return &CheckOutResult{ActualMinutes: *v.ActualMinutes}, nil
}

// canAccessVisit the assigned companion or the senior's family
func (s *VisitService) canAccessVisit(ctx context.Context, v *domain.Visit, requesterID string) bool {
	if requesterID != "" && requesterID == v.CompanionID {
		return true
	}
	_, err := s.owners.CheckSeniorOwner(ctx, requesterID, v.SeniorID)
	return err == nil
}

// CancelVisit either party may cancel a non-terminal visit
func (s *VisitService) CancelVisit(ctx context.Context, visitID, requesterID, reason string) error {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return err
	}
	if !s.canAccessVisit(ctx, v, requesterID) {
		return domain.NotFound("cancel visit", "visit %s not found", visitID)
	}
	from := v.Status
	if err := v.Cancel(s.now(), requesterID, reason); err != nil {
		return err
	}
	if err := s.visits.SaveVisitTransition(ctx, v, from); err != nil {
		return err
	}

	s.logger.Info("Visit cancelled",
		zap.String("visit_id", visitID),
		zap.String("cancelled_by", requesterID),
		zap.String("previous_status", string(from)),
	)
	s.notifier.Notify(ctx, notify.Event{Type: notify.VisitCancelled, Data: map[string]any{
		"visit_id":     visitID,
		"senior_id":    v.SeniorID,
		"companion_id": v.CompanionID,
		"cancelled_by": requesterID,
		"reason":       reason,
	}})
	return nil
}

func (s *VisitService) GetVisit(ctx context.Context, visitID, requesterID string) (*domain.Visit, error) {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if !s.canAccessVisit(ctx, v, requesterID) {
		return nil, domain.NotFound("get visit", "visit %s not found", visitID)
	}
	return v, nil
}

// ListCompanionVisits visits assigned to the companion, optionally by status
func (s *VisitService) ListCompanionVisits(ctx context.Context, companionID string, status domain.VisitStatus) ([]*domain.Visit, error) {
	return s.visits.ListVisits(ctx, repository.VisitFilters{CompanionID: companionID, Status: status})
}
