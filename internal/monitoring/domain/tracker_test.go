package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func at(step int) time.Time {
	return t0.Add(time.Duration(step) * 10 * time.Minute)
}

func TestRequiredReadings(t *testing.T) {
	cases := []struct {
		threshold, poll time.Duration
		want            int
	}{
		{time.Hour, 10 * time.Minute, 6},
		{time.Hour, 7 * time.Minute, 9},
		{5 * time.Minute, 10 * time.Minute, 1},
		{30 * time.Minute, 30 * time.Minute, 1},
	}
	for _, tc := range cases {
		got, err := RequiredReadings(tc.threshold, tc.poll)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "threshold=%s poll=%s", tc.threshold, tc.poll)
	}

	_, err := RequiredReadings(time.Hour, 0)
	assert.ErrorIs(t, err, ErrInvalidPollInterval)
	_, err = RequiredReadings(0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestTrackerFirstSampleIsBaseline(t *testing.T) {
	for _, v := range []float64{0, 5, 123.4} {
		tr, err := NewTracker[float64](1)
		require.NoError(t, err)

		got := tr.Observe(v, at(0))
		assert.Equal(t, TransitionBaseline, got.Kind)

		snap := tr.Snapshot()
		assert.Equal(t, PhaseTracking, snap.Phase)
		assert.True(t, snap.HasValue)
		assert.Equal(t, v, snap.Value)
		assert.Equal(t, 0, snap.Count)
		assert.False(t, snap.AlertActive)
	}
}

func TestTrackerAlertsOncePerEpisode(t *testing.T) {
	tr, err := NewTracker[float64](3)
	require.NoError(t, err)

	tr.Observe(5, at(0))
	assert.Equal(t, TransitionUnchanged, tr.Observe(5, at(1)).Kind)
	assert.Equal(t, TransitionUnchanged, tr.Observe(5, at(2)).Kind)

	alert := tr.Observe(5, at(3))
	assert.Equal(t, TransitionAlert, alert.Kind)
	assert.Equal(t, 30*time.Minute, alert.Elapsed)
	assert.Equal(t, 3, alert.Count)
	assert.Equal(t, at(0), alert.Since)

	for step := 4; step < 20; step++ {
		assert.Equal(t, TransitionUnchanged, tr.Observe(5, at(step)).Kind)
	}
	snap := tr.Snapshot()
	assert.True(t, snap.AlertActive)
	assert.Equal(t, 19, snap.Count)
}

func TestTrackerRecoveryResetsCounter(t *testing.T) {
	tr, err := NewTracker[float64](2)
	require.NoError(t, err)

	tr.Observe(5, at(0))
	tr.Observe(5, at(1))
	require.Equal(t, TransitionAlert, tr.Observe(5, at(2)).Kind)

	rec := tr.Observe(5.3, at(3))
	assert.Equal(t, TransitionRecovery, rec.Kind)
	assert.Equal(t, 5.3, rec.Value)
	assert.Equal(t, 5.0, rec.Previous)
	assert.Equal(t, 30*time.Minute, rec.Elapsed)

	snap := tr.Snapshot()
	assert.Equal(t, PhaseTracking, snap.Phase)
	assert.Equal(t, 0, snap.Count)
	assert.False(t, snap.AlertActive)
	assert.Equal(t, at(3), snap.Since)

	assert.Equal(t, TransitionChanged, tr.Observe(5.4, at(4)).Kind)
}

func TestTrackerChangeWithoutAlertIsSilent(t *testing.T) {
	tr, err := NewTracker[float64](6)
	require.NoError(t, err)

	tr.Observe(1, at(0))
	tr.Observe(1, at(1))
	got := tr.Observe(2, at(2))
	assert.Equal(t, TransitionChanged, got.Kind)
	assert.Equal(t, 0, tr.Snapshot().Count)
}

func TestTrackerResetEmitsNothing(t *testing.T) {
	tr, err := NewTracker[float64](2)
	require.NoError(t, err)

	tr.Observe(5, at(0))
	tr.Observe(5, at(1))
	require.Equal(t, TransitionAlert, tr.Observe(5, at(2)).Kind)

	tr.Reset()
	assert.Equal(t, TrackerSnapshot[float64]{Phase: PhaseBaseline}, tr.Snapshot())
	assert.Equal(t, TransitionBaseline, tr.Observe(5, at(3)).Kind)
}

func TestTrackerAlertWhen(t *testing.T) {
	tr, err := NewTracker[PowerCategory](2, WithAlertWhen(func(c PowerCategory) bool { return c == PowerZero }))
	require.NoError(t, err)

	for step := 0; step < 10; step++ {
		got := tr.Observe(PowerProducing, at(step))
		assert.NotEqual(t, TransitionAlert, got.Kind)
	}
	assert.Equal(t, TransitionChanged, tr.Observe(PowerZero, at(10)).Kind)
	tr.Observe(PowerZero, at(11))
	assert.Equal(t, TransitionAlert, tr.Observe(PowerZero, at(12)).Kind)
}

func TestNewTrackerRejectsZeroRequired(t *testing.T) {
	_, err := NewTracker[float64](0)
	assert.ErrorIs(t, err, ErrInvalidRequiredReadings)
}

func TestCategorizePower(t *testing.T) {
	assert.Equal(t, PowerZero, CategorizePower(0))
	assert.Equal(t, PowerZero, CategorizePower(0.009))
	assert.Equal(t, PowerProducing, CategorizePower(0.01))
	assert.Equal(t, PowerProducing, CategorizePower(3.2))
}
