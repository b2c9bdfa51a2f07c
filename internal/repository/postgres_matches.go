package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"juni-core/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresMatchesRepository matches on Postgres
type PostgresMatchesRepository struct {
	db *sql.DB
}

func NewPostgresMatchesRepository(db *sql.DB) *PostgresMatchesRepository {
	return &PostgresMatchesRepository{db: db}
}

var _ MatchesRepository = (*PostgresMatchesRepository)(nil)

const matchColumns = `
	match_id::text,
	senior_id::text,
	companion_id::text,
	kindred_score,
	match_reasons,
	status,
	proposed_at,
	accepted_at,
	rejected_at`

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var status string
	var acceptedAt, rejectedAt sql.NullTime
	if err := row.Scan(
		&m.MatchID,
		&m.SeniorID,
		&m.CompanionID,
		&m.KindredScore,
		pq.Array(&m.MatchReasons),
		&status,
		&m.ProposedAt,
		&acceptedAt,
		&rejectedAt,
	); err != nil {
		return nil, err
	}
	m.Status = domain.MatchStatus(status)
	m.AcceptedAt = timePtr(acceptedAt)
	m.RejectedAt = timePtr(rejectedAt)
	return &m, nil
}

func (r *PostgresMatchesRepository) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = $1`, matchID)
	m, err := scanMatch(row)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get match", "match %s not found", matchID)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *PostgresMatchesRepository) ListMatchesForSenior(ctx context.Context, seniorID string) ([]*domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE senior_id = $1 ORDER BY kindred_score DESC, proposed_at`,
		seniorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	out := []*domain.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return out, nil
}

func (r *PostgresMatchesRepository) UpsertProposedMatches(ctx context.Context, seniorID string, results []domain.MatchResult, at time.Time) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, res := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO matches (match_id, senior_id, companion_id, kindred_score, match_reasons, status, proposed_at)
			VALUES ($1, $2, $3, $4, $5, 'PROPOSED', $6)
			ON CONFLICT (senior_id, companion_id) DO UPDATE SET
				kindred_score = EXCLUDED.kindred_score,
				match_reasons = EXCLUDED.match_reasons,
				status = 'PROPOSED',
				proposed_at = EXCLUDED.proposed_at
			WHERE matches.status = 'PROPOSED'`,
			uuid.New().String(),
			seniorID,
			res.CompanionID,
			res.KindredScore,
			pq.Array(nonNil(res.MatchReasons)),
			at,
		)
		if isInvalidKey(err) {
			return domain.NotFound("propose matches", "companion %s not found", res.CompanionID)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert match for companion %s: %w", res.CompanionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit matches: %w", err)
	}
	return nil
}

// lockMatch loads the match row FOR UPDATE inside tx
func lockMatch(ctx context.Context, tx *sql.Tx, op, matchID string) (*domain.Match, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = $1 FOR UPDATE`, matchID)
	m, err := scanMatch(row)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound(op, "match %s not found", matchID)
		}
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	return m, nil
}

func (r *PostgresMatchesRepository) AcceptMatch(ctx context.Context, matchID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(ctx, tx, "accept match", matchID)
	if err != nil {
		return err
	}
	if err := m.Accept(at); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = $2, accepted_at = $3 WHERE match_id = $1`,
		matchID, string(m.Status), at,
	); err != nil {
		return fmt.Errorf("failed to activate match: %w", err)
	}

	// last writer wins when two matches of one senior are accepted concurrently
	res, err := tx.ExecContext(ctx,
		`UPDATE seniors SET companion_id = $2, updated_at = $3 WHERE senior_id = $1`,
		m.SeniorID, m.CompanionID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to assign companion to senior: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	} else if n == 0 {
		return domain.NotFound("accept match", "senior %s not found", m.SeniorID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match acceptance: %w", err)
	}
	return nil
}

func (r *PostgresMatchesRepository) RejectMatch(ctx context.Context, matchID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := lockMatch(ctx, tx, "reject match", matchID)
	if err != nil {
		return err
	}
	if err := m.Reject(at); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = $2, rejected_at = $3 WHERE match_id = $1`,
		matchID, string(m.Status), at,
	); err != nil {
		return fmt.Errorf("failed to reject match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match rejection: %w", err)
	}
	return nil
}
