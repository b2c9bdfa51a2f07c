package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"juni-core/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresPayoutsRepository payouts on Postgres
type PostgresPayoutsRepository struct {
	db *sql.DB
}

func NewPostgresPayoutsRepository(db *sql.DB) *PostgresPayoutsRepository {
	return &PostgresPayoutsRepository{db: db}
}

var _ PayoutsRepository = (*PostgresPayoutsRepository)(nil)

const payoutColumns = `
	payout_id::text,
	companion_id::text,
	period_start,
	period_end,
	visit_count,
	total_hours,
	hourly_rate_cents,
	gross_amount_cents,
	platform_fee_cents,
	net_amount_cents,
	status,
	transfer_ref,
	failure_reason,
	paid_at,
	created_at`

func scanPayout(row rowScanner) (*domain.Payout, error) {
	var p domain.Payout
	var status string
	var transferRef, failureReason sql.NullString
	var paidAt sql.NullTime
	if err := row.Scan(
		&p.PayoutID,
		&p.CompanionID,
		&p.PeriodStart,
		&p.PeriodEnd,
		&p.VisitCount,
		&p.TotalHours,
		&p.HourlyRateCents,
		&p.GrossAmountCents,
		&p.PlatformFeeCents,
		&p.NetAmountCents,
		&status,
		&transferRef,
		&failureReason,
		&paidAt,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.PayoutStatus(status)
	p.TransferRef = transferRef.String
	p.FailureReason = failureReason.String
	p.PaidAt = timePtr(paidAt)
	return &p, nil
}

func (r *PostgresPayoutsRepository) CreatePayoutForUnpaidVisits(ctx context.Context, companionID string, start, end time.Time, build PayoutBuilder) (*domain.Payout, []*domain.Visit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// FOR UPDATE: a concurrent run blocks here and re-evaluates payout_id IS NULL
	// after we commit, so a visit can never be claimed twice.
	rows, err := tx.QueryContext(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE companion_id = $1
		  AND status = 'COMPLETED'
		  AND payout_id IS NULL
		  AND scheduled_at >= $2
		  AND scheduled_at <= $3
		ORDER BY scheduled_at, visit_id
		FOR UPDATE`,
		companionID, start, end,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select unpaid visits: %w", err)
	}
	var visits []*domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	if len(visits) == 0 {
		return nil, nil, nil
	}

	payout, err := build(visits)
	if err != nil {
		return nil, nil, err
	}
	if payout.PayoutID == "" {
		payout.PayoutID = uuid.New().String()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payouts (
			payout_id, companion_id, period_start, period_end, visit_count, total_hours,
			hourly_rate_cents, gross_amount_cents, platform_fee_cents, net_amount_cents,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		payout.PayoutID,
		payout.CompanionID,
		payout.PeriodStart,
		payout.PeriodEnd,
		payout.VisitCount,
		payout.TotalHours,
		payout.HourlyRateCents,
		payout.GrossAmountCents,
		payout.PlatformFeeCents,
		payout.NetAmountCents,
		string(payout.Status),
		payout.CreatedAt,
	); err != nil {
		return nil, nil, fmt.Errorf("failed to insert payout: %w", err)
	}

	ids := make([]string, 0, len(visits))
	for _, v := range visits {
		ids = append(ids, v.VisitID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE visits SET payout_id = $1, billed_hours = $2 WHERE visit_id = ANY($3::uuid[])`,
		payout.PayoutID, payout.TotalHours, pq.Array(ids),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to link visits to payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit payout: %w", err)
	}

	for _, v := range visits {
		v.PayoutID = payout.PayoutID
		v.BilledHours = decimal.NullDecimal{Decimal: payout.TotalHours, Valid: true}
	}
	return payout, visits, nil
}

func (r *PostgresPayoutsRepository) finishPayout(ctx context.Context, op, payoutID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if isInvalidKey(err) {
		return domain.NotFound(op, "payout %s not found", payoutID)
	}
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.GetPayout(ctx, payoutID); err != nil {
			return err
		}
		return domain.InvalidState(op, "payout %s is not PROCESSING", payoutID)
	}
	return nil
}

func (r *PostgresPayoutsRepository) MarkPayoutPaid(ctx context.Context, payoutID, transferRef string, paidAt time.Time) error {
	return r.finishPayout(ctx, "mark payout paid", payoutID, `
		UPDATE payouts SET status = 'PAID', transfer_ref = $2, paid_at = $3, failure_reason = NULL
		WHERE payout_id = $1 AND status = 'PROCESSING'`,
		payoutID, transferRef, paidAt,
	)
}

func (r *PostgresPayoutsRepository) MarkPayoutFailed(ctx context.Context, payoutID, reason string) error {
	return r.finishPayout(ctx, "mark payout failed", payoutID, `
		UPDATE payouts SET status = 'FAILED', failure_reason = $2
		WHERE payout_id = $1 AND status = 'PROCESSING'`,
		payoutID, reason,
	)
}

func (r *PostgresPayoutsRepository) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE payout_id = $1`, payoutID)
	p, err := scanPayout(row)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get payout", "payout %s not found", payoutID)
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

func (r *PostgresPayoutsRepository) ListPayouts(ctx context.Context, companionID string) ([]*domain.Payout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE companion_id = $1 ORDER BY created_at DESC, payout_id`,
		companionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return out, nil
}

// NewPostgresStore wires every Postgres repository onto one handle
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Seniors:    NewPostgresSeniorsRepository(db),
		Companions: NewPostgresCompanionsRepository(db),
		Matches:    NewPostgresMatchesRepository(db),
		Visits:     NewPostgresVisitsRepository(db),
		Payouts:    NewPostgresPayoutsRepository(db),
	}
}
