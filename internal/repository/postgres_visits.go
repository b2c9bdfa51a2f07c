package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"juni-core/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresVisitsRepository visits on Postgres
type PostgresVisitsRepository struct {
	db *sql.DB
}

func NewPostgresVisitsRepository(db *sql.DB) *PostgresVisitsRepository {
	return &PostgresVisitsRepository{db: db}
}

var _ VisitsRepository = (*PostgresVisitsRepository)(nil)

const visitColumns = `
	visit_id::text,
	senior_id::text,
	companion_id::text,
	scheduled_at,
	duration_min,
	status,
	check_in_at,
	check_out_at,
	check_in_lat,
	check_in_lng,
	check_out_lat,
	check_out_lng,
	actual_minutes,
	mood,
	activities,
	notes,
	cancelled_at,
	cancelled_by,
	cancel_reason,
	payout_id::text,
	billed_hours,
	created_at`

func scanVisit(row rowScanner) (*domain.Visit, error) {
	var v domain.Visit
	var status string
	var checkInAt, checkOutAt, cancelledAt sql.NullTime
	var inLat, inLng, outLat, outLng sql.NullFloat64
	var actual sql.NullInt64
	var mood, notes, cancelledBy, cancelReason, payoutID sql.NullString
	if err := row.Scan(
		&v.VisitID,
		&v.SeniorID,
		&v.CompanionID,
		&v.ScheduledAt,
		&v.DurationMin,
		&status,
		&checkInAt,
		&checkOutAt,
		&inLat,
		&inLng,
		&outLat,
		&outLng,
		&actual,
		&mood,
		pq.Array(&v.Activities),
		&notes,
		&cancelledAt,
		&cancelledBy,
		&cancelReason,
		&payoutID,
		&v.BilledHours,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	v.Status = domain.VisitStatus(status)
	v.CheckInAt = timePtr(checkInAt)
	v.CheckOutAt = timePtr(checkOutAt)
	v.CheckInLocation = geoPoint(inLat, inLng)
	v.CheckOutLocation = geoPoint(outLat, outLng)
	if actual.Valid {
		m := int(actual.Int64)
		v.ActualMinutes = &m
	}
	v.Mood = mood.String
	v.Notes = notes.String
	v.CancelledAt = timePtr(cancelledAt)
	v.CancelledBy = cancelledBy.String
	v.CancelReason = cancelReason.String
	v.PayoutID = payoutID.String
	return &v, nil
}

func (r *PostgresVisitsRepository) GetVisit(ctx context.Context, visitID string) (*domain.Visit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitColumns+` FROM visits WHERE visit_id = $1`, visitID)
	v, err := scanVisit(row)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get visit", "visit %s not found", visitID)
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

func (r *PostgresVisitsRepository) CreateVisit(ctx context.Context, visit *domain.Visit) (string, error) {
	if visit.VisitID == "" {
		visit.VisitID = uuid.New().String()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO visits (visit_id, senior_id, companion_id, scheduled_at, duration_min, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		visit.VisitID,
		visit.SeniorID,
		visit.CompanionID,
		visit.ScheduledAt,
		visit.DurationMin,
		string(visit.Status),
		visit.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create visit: %w", err)
	}
	return visit.VisitID, nil
}

func (r *PostgresVisitsRepository) ListVisits(ctx context.Context, filters VisitFilters) ([]*domain.Visit, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.SeniorID != "" {
		where = append(where, fmt.Sprintf("senior_id = $%d", argN))
		args = append(args, filters.SeniorID)
		argN++
	}
	if filters.CompanionID != "" {
		where = append(where, fmt.Sprintf("companion_id = $%d", argN))
		args = append(args, filters.CompanionID)
		argN++
	}
	if filters.PayoutID != "" {
		where = append(where, fmt.Sprintf("payout_id = $%d", argN))
		args = append(args, filters.PayoutID)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, string(filters.Status))
		argN++
	}

	query := `SELECT ` + visitColumns + ` FROM visits WHERE ` + strings.Join(where, " AND ") + ` ORDER BY scheduled_at, visit_id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	out := []*domain.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return out, nil
}

func (r *PostgresVisitsRepository) SaveVisitTransition(ctx context.Context, v *domain.Visit, from domain.VisitStatus) error {
	inLat, inLng := geoArgs(v.CheckInLocation)
	outLat, outLng := geoArgs(v.CheckOutLocation)

	res, err := r.db.ExecContext(ctx, `
		UPDATE visits SET
			status = $2,
			check_in_at = $3,
			check_in_lat = $4,
			check_in_lng = $5,
			check_out_at = $6,
			check_out_lat = $7,
			check_out_lng = $8,
			actual_minutes = $9,
			mood = $10,
			activities = $11,
			notes = $12,
			cancelled_at = $13,
			cancelled_by = $14,
			cancel_reason = $15
		WHERE visit_id = $1 AND status = $16`,
		v.VisitID,
		string(v.Status),
		nullTime(v.CheckInAt),
		inLat,
		inLng,
		nullTime(v.CheckOutAt),
		outLat,
		outLng,
		nullInt(v.ActualMinutes),
		nullString(v.Mood),
		pq.Array(nonNil(v.Activities)),
		nullString(v.Notes),
		nullTime(v.CancelledAt),
		nullString(v.CancelledBy),
		nullString(v.CancelReason),
		string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.InvalidState("save visit", "visit %s is no longer %s", v.VisitID, from)
	}
	return nil
}
