package service

import (
	"context"
	"testing"

	"juni-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_UpsertSenior(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	senior, err := f.profiles.GetSenior(ctx, f.seniorID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "AZ", senior.State())

	senior.Location = "  Tucson, az "
	_, err = f.profiles.UpsertSenior(ctx, UpsertSeniorRequest{RequesterID: ownerID, Senior: *senior})
	require.NoError(t, err)
	got, _ := f.profiles.GetSenior(ctx, f.seniorID, ownerID)
	assert.Equal(t, "Tucson, az", got.Location)
	assert.Equal(t, "AZ", got.State())

	_, err = f.profiles.UpsertSenior(ctx, UpsertSeniorRequest{RequesterID: "stranger", Senior: *senior})
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	senior.Personality.Agreeableness = intPtr(140)
	_, err = f.profiles.UpsertSenior(ctx, UpsertSeniorRequest{RequesterID: ownerID, Senior: *senior})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.profiles.UpsertSenior(ctx, UpsertSeniorRequest{RequesterID: ownerID, Senior: domain.SeniorProfile{}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestProfileService_GetSenior_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.profiles.GetSenior(ctx, "missing", ownerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.profiles.GetSenior(ctx, f.seniorID, "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestProfileService_UpdateCompanionStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.addCompanion(domain.CompanionTraining, "")

	assert.ErrorIs(t, f.profiles.UpdateCompanionStatus(ctx, c, "RETIRED"), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.profiles.UpdateCompanionStatus(ctx, "missing", domain.CompanionActive), domain.ErrNotFound)

	require.NoError(t, f.profiles.UpdateCompanionStatus(ctx, c, domain.CompanionActive))
	active, err := f.profiles.ListCompanions(ctx, domain.CompanionActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, c, active[0].CompanionID)
}
