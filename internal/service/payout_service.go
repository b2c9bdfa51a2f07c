package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"juni-core/internal/domain"
	"juni-core/internal/notify"
	"juni-core/internal/repository"
	"juni-core/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PayoutServiceConfig payout policy and run settings
type PayoutServiceConfig struct {
	HourlyRateCents int64
	PlatformFeePct  float64
	Concurrency     int
	LockTTL         time.Duration
	Currency        string
}

// PayoutService aggregates completed visits into payouts and pays them out
type PayoutService struct {
	payouts    repository.PayoutsRepository
	visits     repository.VisitsRepository
	companions repository.CompanionsRepository
	transfer   TransferClient
	locks      store.KVStore
	notifier   notify.Notifier
	policy     domain.PayoutPolicy
	cfg        PayoutServiceConfig
	now        func() time.Time
	logger     *zap.Logger
}

func NewPayoutService(st *repository.Store, transfer TransferClient, locks store.KVStore, notifier notify.Notifier, cfg PayoutServiceConfig, logger *zap.Logger) *PayoutService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PayoutService{
		payouts:    st.Payouts,
		visits:     st.Visits,
		companions: st.Companions,
		transfer:   transfer,
		locks:      locks,
		notifier:   notifier,
		policy:     domain.NewPayoutPolicy(cfg.HourlyRateCents, cfg.PlatformFeePct),
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// ProcessCompanionPayout claims the companion's COMPLETED unpaid visits in
// [start, end], creates the payout and transfers the net amount. It returns
// (nil, nil) when there is nothing to pay. A failed transfer is recorded on
// the payout, which is returned FAILED together with an external-service
// error; its visits stay linked to it.
func (s *PayoutService) ProcessCompanionPayout(ctx context.Context, companionID string, start, end time.Time) (*domain.Payout, error) {
	const op = "process payout"
	if end.Before(start) {
		return nil, domain.InvalidArgument(op, "period_end is before period_start")
	}
	companion, err := s.companions.GetCompanion(ctx, companionID)
	if err != nil {
		return nil, err
	}

	lock, err := store.Acquire(ctx, s.locks, store.PayoutLockKey(companionID), s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			return nil, domain.InvalidState(op, "a payout run for companion %s is already in progress", companionID)
		}
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release payout lock", zap.String("companion_id", companionID), zap.Error(err))
		}
	}()

	now := s.now()
	payout, visits, err := s.payouts.CreatePayoutForUnpaidVisits(ctx, companionID, start, end,
		func(vs []*domain.Visit) (*domain.Payout, error) {
			amounts := s.policy.Compute(vs)
			return domain.NewPayout("", companionID, start, end, len(vs), s.policy.HourlyRateCents, amounts, now), nil
		})
	if err != nil {
		return nil, err
	}
	if payout == nil {
		s.logger.Info("No unpaid visits in period",
			zap.String("companion_id", companionID),
			zap.Time("period_start", start),
			zap.Time("period_end", end),
		)
		return nil, nil
	}

	s.logger.Info("Payout created",
		zap.String("payout_id", payout.PayoutID),
		zap.String("companion_id", companionID),
		zap.Int("visit_count", len(visits)),
		zap.String("total_hours", payout.TotalHours.String()),
		zap.Int64("net_amount_cents", payout.NetAmountCents),
	)

	var ref string
	if companion.PayoutAccountID == "" {
		err = errors.New("companion has no payout account")
	} else {
		ref, err = s.transfer.Transfer(ctx, TransferRequest{
			IdempotencyKey:     payout.PayoutID,
			DestinationAccount: companion.PayoutAccountID,
			AmountCents:        payout.NetAmountCents,
			Currency:           s.cfg.Currency,
			Description:        fmt.Sprintf("Juni payout %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		})
	}
	// the outcome is recorded even when the caller's context is gone
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		return payout, s.failPayout(recordCtx, payout, err)
	}

	paidAt := s.now()
	if err := s.payouts.MarkPayoutPaid(recordCtx, payout.PayoutID, ref, paidAt); err != nil {
		return nil, fmt.Errorf("failed to record paid payout %s (transfer %s): %w", payout.PayoutID, ref, err)
	}
	payout.Status = domain.PayoutPaid
	payout.TransferRef = ref
	payout.PaidAt = &paidAt

	s.logger.Info("Payout paid",
		zap.String("payout_id", payout.PayoutID),
		zap.String("companion_id", companionID),
		zap.String("transfer_ref", ref),
	)
	s.notifier.Notify(recordCtx, notify.Event{Type: notify.PayoutPaid, Data: map[string]any{
		"payout_id":        payout.PayoutID,
		"companion_id":     companionID,
		"net_amount_cents": payout.NetAmountCents,
		"transfer_ref":     ref,
	}})
	return payout, nil
}

func (s *PayoutService) failPayout(ctx context.Context, payout *domain.Payout, cause error) error {
	reason := cause.Error()
	if err := s.payouts.MarkPayoutFailed(ctx, payout.PayoutID, reason); err != nil {
		s.logger.Error("Failed to record payout failure",
			zap.String("payout_id", payout.PayoutID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
	payout.Status = domain.PayoutFailed
	payout.FailureReason = reason

	s.logger.Warn("Payout transfer failed",
		zap.String("payout_id", payout.PayoutID),
		zap.String("companion_id", payout.CompanionID),
		zap.Error(cause),
	)
	s.notifier.Notify(ctx, notify.Event{Type: notify.PayoutFailed, Data: map[string]any{
		"payout_id":    payout.PayoutID,
		"companion_id": payout.CompanionID,
		"reason":       reason,
	}})
	return domain.ExternalService("process payout", cause, "transfer for payout %s failed", payout.PayoutID)
}

// RunPayoutsRequest admin-triggered batch run; empty CompanionIDs means
// every ACTIVE companion
type RunPayoutsRequest struct {
	CompanionIDs []string
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// PayoutOutcome result for one companion in a batch
type PayoutOutcome struct {
	CompanionID string `json:"companion_id"`
	Status      string `json:"status"` // paid | failed | nothing_due
	PayoutID    string `json:"payout_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunPayoutsResult counts over all processed companions
type RunPayoutsResult struct {
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Outcomes  []PayoutOutcome `json:"outcomes"`
}

// uniqueIDs drops blanks and repeats, keeping first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// RunPayouts processes each companion independently with bounded
// concurrency. Individual failures are counted, never returned.
func (s *PayoutService) RunPayouts(ctx context.Context, req RunPayoutsRequest) (*RunPayoutsResult, error) {
	if req.PeriodEnd.Before(req.PeriodStart) {
		return nil, domain.InvalidArgument("run payouts", "period_end is before period_start")
	}

	ids := uniqueIDs(req.CompanionIDs)
	if len(ids) == 0 {
		active, err := s.companions.ListCompanions(ctx, repository.CompanionFilters{Status: domain.CompanionActive})
		if err != nil {
			return nil, err
		}
		for _, c := range active {
			ids = append(ids, c.CompanionID)
		}
	}

	outcomes := make([]PayoutOutcome, len(ids))
	var mu sync.Mutex
	result := &RunPayoutsResult{}

	// errgroup is used for its concurrency limit only; workers never return errors
	// so one failure cannot cancel the rest of the batch.
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			out := PayoutOutcome{CompanionID: id}
			payout, err := s.ProcessCompanionPayout(ctx, id, req.PeriodStart, req.PeriodEnd)
			switch {
			case err != nil:
				out.Status = "failed"
				out.Error = domain.PublicMessage(err)
				if payout != nil {
					out.PayoutID = payout.PayoutID
				}
			case payout == nil:
				out.Status = "nothing_due"
			default:
				out.Status = "paid"
				out.PayoutID = payout.PayoutID
			}

			mu.Lock()
			outcomes[i] = out
			result.Processed++
			if err != nil {
				result.Failed++
			} else {
				result.Succeeded++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Outcomes = outcomes
	s.logger.Info("Payout run finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *PayoutService) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	return s.payouts.GetPayout(ctx, payoutID)
}

func (s *PayoutService) ListPayouts(ctx context.Context, companionID string) ([]*domain.Payout, error) {
	return s.payouts.ListPayouts(ctx, companionID)
}

// PayoutStatement companion payouts with the visits billed in each
type PayoutStatement struct {
	Companion *domain.CompanionProfile
	Payouts   []*domain.Payout
	Visits    map[string][]*domain.Visit // payout id -> visits
}

func (s *PayoutService) Statement(ctx context.Context, companionID string) (*PayoutStatement, error) {
	companion, err := s.companions.GetCompanion(ctx, companionID)
	if err != nil {
		return nil, err
	}
	payouts, err := s.payouts.ListPayouts(ctx, companionID)
	if err != nil {
		return nil, err
	}
	st := &PayoutStatement{
		Companion: companion,
		Payouts:   payouts,
		Visits:    make(map[string][]*domain.Visit, len(payouts)),
	}
	for _, p := range payouts {
		vs, err := s.visits.ListVisits(ctx, repository.VisitFilters{PayoutID: p.PayoutID})
		if err != nil {
			return nil, err
		}
		st.Visits[p.PayoutID] = vs
	}
	return st, nil
}
