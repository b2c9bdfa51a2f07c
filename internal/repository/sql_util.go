package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"juni-core/internal/domain"

	"github.com/lib/pq"
)

// invalid_text_representation: a malformed uuid key
const pqInvalidTextRepresentation = "22P02"

// isInvalidKey reports a key Postgres could not parse as its column type
func isInvalidKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation
}

// isMissingRow no row for the key, or a key that can never match one
func isMissingRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isInvalidKey(err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func geoArgs(p *domain.GeoPoint) (any, any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lng
}

func geoPoint(lat, lng sql.NullFloat64) *domain.GeoPoint {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
}

// personalityJSON encodes the trait record for the JSONB column; an empty
// record is stored as NULL.
func personalityJSON(p domain.Personality) (any, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func parsePersonality(raw []byte) (domain.Personality, error) {
	var p domain.Personality
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
