package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduledVisit() *Visit {
	return &Visit{
		VisitID:     "v-1",
		SeniorID:    "s-1",
		CompanionID: "c-1",
		ScheduledAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		DurationMin: 120,
		Status:      VisitScheduled,
	}
}

func TestVisit_CheckInCheckOut(t *testing.T) {
	v := newScheduledVisit()
	t0 := time.Date(2026, 3, 2, 10, 1, 0, 0, time.UTC)

	require.NoError(t, v.CheckIn(t0, &GeoPoint{Lat: 33.4, Lng: -111.9}))
	assert.Equal(t, VisitInProgress, v.Status)
	require.NotNil(t, v.CheckInAt)

	out := t0.Add(125*time.Minute + 30*time.Second)
	require.NoError(t, v.CheckOut(out, CheckOutDetails{Mood: "cheerful", Activities: []string{"chess"}, Notes: "good day"}))
	assert.Equal(t, VisitCompleted, v.Status)
	require.NotNil(t, v.ActualMinutes)
	assert.Equal(t, 126, *v.ActualMinutes)
	assert.Equal(t, "cheerful", v.Mood)
	assert.Equal(t, []string{"chess"}, v.Activities)
}

func TestVisit_CheckInTwice(t *testing.T) {
	v := newScheduledVisit()
	now := time.Now()
	require.NoError(t, v.CheckIn(now, nil))

	err := v.CheckIn(now, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestVisit_CheckOutBeforeCheckIn(t *testing.T) {
	v := newScheduledVisit()
	err := v.CheckOut(time.Now(), CheckOutDetails{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Equal(t, VisitScheduled, v.Status)
}

func TestVisit_CheckOutAfterCompleted(t *testing.T) {
	v := newScheduledVisit()
	now := time.Now()
	require.NoError(t, v.CheckIn(now, nil))
	require.NoError(t, v.CheckOut(now.Add(time.Hour), CheckOutDetails{}))

	err := v.CheckOut(now.Add(2*time.Hour), CheckOutDetails{})
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestVisit_CheckInFromConfirmed(t *testing.T) {
	v := newScheduledVisit()
	require.NoError(t, v.Confirm())
	assert.Equal(t, VisitConfirmed, v.Status)
	require.NoError(t, v.CheckIn(time.Now(), nil))

	assert.True(t, errors.Is(v.Confirm(), ErrInvalidState))
}

func TestVisit_Cancel(t *testing.T) {
	now := time.Now()
	for _, st := range []VisitStatus{VisitScheduled, VisitConfirmed, VisitInProgress} {
		v := newScheduledVisit()
		v.Status = st
		require.NoError(t, v.Cancel(now, "u-1", "sick"), st)
		assert.Equal(t, VisitCancelled, v.Status)
		assert.Equal(t, "u-1", v.CancelledBy)
		assert.Equal(t, "sick", v.CancelReason)
	}
	for _, st := range []VisitStatus{VisitCompleted, VisitCancelled} {
		v := newScheduledVisit()
		v.Status = st
		assert.True(t, errors.Is(v.Cancel(now, "u-1", ""), ErrInvalidState), st)
	}
}

func TestElapsedMinutes(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 126, ElapsedMinutes(t0, t0.Add(125*time.Minute+30*time.Second)))
	assert.Equal(t, 125, ElapsedMinutes(t0, t0.Add(125*time.Minute+29*time.Second)))
	assert.Equal(t, 0, ElapsedMinutes(t0, t0.Add(-time.Minute)))
	assert.Equal(t, 60, ElapsedMinutes(t0, t0.Add(time.Hour)))
}

func TestVisit_BillableMinutesFallsBackToPlanned(t *testing.T) {
	v := newScheduledVisit()
	assert.Equal(t, 120, v.BillableMinutes())
	m := 95
	v.ActualMinutes = &m
	assert.Equal(t, 95, v.BillableMinutes())
}
