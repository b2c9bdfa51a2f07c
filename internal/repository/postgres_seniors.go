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

// PostgresSeniorsRepository seniors + families on Postgres
type PostgresSeniorsRepository struct {
	db *sql.DB
}

func NewPostgresSeniorsRepository(db *sql.DB) *PostgresSeniorsRepository {
	return &PostgresSeniorsRepository{db: db}
}

var _ SeniorsRepository = (*PostgresSeniorsRepository)(nil)

func (r *PostgresSeniorsRepository) GetSenior(ctx context.Context, seniorID string) (*domain.SeniorProfile, error) {
	if seniorID == "" {
		return nil, domain.InvalidArgument("get senior", "senior_id is required")
	}

	query := `
		SELECT
			senior_id::text,
			family_id::text,
			display_name,
			interests,
			companion_qualities,
			social_style,
			personality,
			location,
			conditions,
			companion_id::text,
			created_at,
			updated_at
		FROM seniors
		WHERE senior_id = $1
	`

	var s domain.SeniorProfile
	var personality []byte
	var location, companionID sql.NullString
	err := r.db.QueryRowContext(ctx, query, seniorID).Scan(
		&s.SeniorID,
		&s.FamilyID,
		&s.DisplayName,
		pq.Array(&s.Interests),
		pq.Array(&s.CompanionQualities),
		pq.Array(&s.SocialStyle),
		&personality,
		&location,
		pq.Array(&s.Conditions),
		&companionID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get senior", "senior %s not found", seniorID)
		}
		return nil, fmt.Errorf("failed to get senior: %w", err)
	}

	if s.Personality, err = parsePersonality(personality); err != nil {
		return nil, fmt.Errorf("failed to decode personality for senior %s: %w", seniorID, err)
	}
	s.Location = location.String
	s.CompanionID = companionID.String
	return &s, nil
}

// UpsertSenior writes the family-editable profile fields. companion_id is
// never written here; it only changes through AcceptMatch.
func (r *PostgresSeniorsRepository) UpsertSenior(ctx context.Context, senior *domain.SeniorProfile) (string, error) {
	if senior.FamilyID == "" {
		return "", domain.InvalidArgument("upsert senior", "family_id is required")
	}
	if senior.SeniorID == "" {
		senior.SeniorID = uuid.New().String()
	}

	personality, err := personalityJSON(senior.Personality)
	if err != nil {
		return "", fmt.Errorf("failed to encode personality: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO seniors (
			senior_id, family_id, display_name, interests, companion_qualities,
			social_style, personality, location, conditions, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (senior_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			interests = EXCLUDED.interests,
			companion_qualities = EXCLUDED.companion_qualities,
			social_style = EXCLUDED.social_style,
			personality = EXCLUDED.personality,
			location = EXCLUDED.location,
			conditions = EXCLUDED.conditions,
			updated_at = EXCLUDED.updated_at
		WHERE seniors.family_id = EXCLUDED.family_id`,
		senior.SeniorID,
		senior.FamilyID,
		senior.DisplayName,
		pq.Array(nonNil(senior.Interests)),
		pq.Array(nonNil(senior.CompanionQualities)),
		pq.Array(nonNil(senior.SocialStyle)),
		personality,
		nullString(senior.Location),
		pq.Array(nonNil(senior.Conditions)),
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert senior: %w", err)
	}
	// the conflict update is skipped when the row belongs to another family
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", domain.Unauthorized("upsert senior", "senior %s belongs to another family", senior.SeniorID)
	}
	return senior.SeniorID, nil
}

func (r *PostgresSeniorsRepository) GetFamily(ctx context.Context, familyID string) (*domain.Family, error) {
	var f domain.Family
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT family_id::text, owner_user_id, name FROM families WHERE family_id = $1`,
		familyID,
	).Scan(&f.FamilyID, &f.OwnerUserID, &name)
	if err != nil {
		if isMissingRow(err) {
			return nil, domain.NotFound("get family", "family %s not found", familyID)
		}
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	f.Name = name.String
	return &f, nil
}
