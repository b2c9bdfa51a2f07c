package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"juni-core/internal/domain"

	"github.com/lib/pq"
)

// PostgresCompanionsRepository companions on Postgres
type PostgresCompanionsRepository struct {
	db *sql.DB
}

func NewPostgresCompanionsRepository(db *sql.DB) *PostgresCompanionsRepository {
	return &PostgresCompanionsRepository{db: db}
}

var _ CompanionsRepository = (*PostgresCompanionsRepository)(nil)

const companionColumns = `
	companion_id::text,
	display_name,
	interests,
	availability,
	city,
	state,
	status,
	payout_account_id,
	created_at,
	updated_at`

func scanCompanion(row rowScanner) (*domain.CompanionProfile, error) {
	var c domain.CompanionProfile
	var availability, city, state, account sql.NullString
	var status string
	if err := row.Scan(
		&c.CompanionID,
		&c.DisplayName,
		pq.Array(&c.Interests),
		&availability,
		&city,
		&state,
		&status,
		&account,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Availability = domain.Availability(availability.String)
	c.City = city.String
	c.State = state.String
	c.Status = domain.CompanionStatus(status)
	c.PayoutAccountID = account.String
	return &c, nil
}

func (r *PostgresCompanionsRepository) GetCompanion(ctx context.Context, companionID string) (*domain.CompanionProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+companionColumns+` FROM companions WHERE companion_id = $1`,
		companionID,
	)
	c, err := scanCompanion(row)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get companion", "companion %s not found", companionID)
		}
		return nil, fmt.Errorf("failed to get companion: %w", err)
	}
	return c, nil
}

// ListCompanions ordered by created_at so candidate pools iterate in a stable order
func (r *PostgresCompanionsRepository) ListCompanions(ctx context.Context, filters CompanionFilters) ([]*domain.CompanionProfile, error) {
	query := `SELECT ` + companionColumns + ` FROM companions`
	var args []any
	if filters.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filters.Status))
	}
	query += ` ORDER BY created_at, companion_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list companions: %w", err)
	}
	defer rows.Close()

	out := []*domain.CompanionProfile{}
	for rows.Next() {
		c, err := scanCompanion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan companion: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companions: %w", err)
	}
	return out, nil
}

func (r *PostgresCompanionsRepository) UpdateCompanionStatus(ctx context.Context, companionID string, status domain.CompanionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE companions SET status = $2, updated_at = $3 WHERE companion_id = $1`,
		companionID, string(status), time.Now().UTC(),
	)
	if isInvalidKey(err) {
		return domain.NotFound("update companion status", "companion %s not found", companionID)
	}
	if err != nil {
		return fmt.Errorf("failed to update companion status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFound("update companion status", "companion %s not found", companionID)
	}
	return nil
}
