package scheduler

import (
	"testing"
	"time"

	"github.com/crucial707/patient-sync/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestShouldFire_EveryTwoHoursAfterThreeHourGap(t *testing.T) {
	checkpoint := base.Add(-3 * time.Hour)

	fire, next, err := ShouldFire("0 */2 * * *", checkpoint, base)
	require.NoError(t, err)
	assert.True(t, fire)
	assert.Equal(t, base, next)
}

func TestShouldFire_FourFieldExpressionRejected(t *testing.T) {
	checkpoint := base.Add(-3 * time.Hour)

	fire, next, err := ShouldFire("*/2 * * *", checkpoint, base)
	require.Error(t, err)
	assert.True(t, syncerr.IsConfig(err))
	assert.False(t, fire)
	assert.Equal(t, checkpoint, next)
}

func TestShouldFire_ManyMissedOccurrencesFireOnce(t *testing.T) {
	checkpoint := base.Add(-time.Hour)
	now := base

	// 60 occurrences elapsed; only one run is reported.
	fire, cp, err := ShouldFire("* * * * *", checkpoint, now)
	require.NoError(t, err)
	require.True(t, fire)
	require.Equal(t, now, cp)

	fire, cp2, err := ShouldFire("* * * * *", cp, now)
	require.NoError(t, err)
	assert.False(t, fire, "same instant must not fire twice")
	assert.Equal(t, cp, cp2)
}

func TestShouldFire_NoOccurrenceYet(t *testing.T) {
	checkpoint := base.Add(10 * time.Minute)
	now := base.Add(50 * time.Minute)

	fire, cp, err := ShouldFire("0 * * * *", checkpoint, now)
	require.NoError(t, err)
	assert.False(t, fire)
	assert.Equal(t, checkpoint, cp)

	fire, cp, err = ShouldFire("0 * * * *", checkpoint, base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, fire)
	assert.Equal(t, base.Add(time.Hour), cp)
}

func TestShouldFire_OccurrenceExactlyAtNow(t *testing.T) {
	fire, _, err := ShouldFire("0 12 * * *", base.Add(-time.Minute), base)
	require.NoError(t, err)
	assert.True(t, fire)
}

func TestShouldFire_CheckpointInFuture(t *testing.T) {
	checkpoint := base.Add(2 * time.Hour)

	fire, cp, err := ShouldFire("* * * * *", checkpoint, base)
	require.NoError(t, err)
	assert.False(t, fire)
	assert.Equal(t, checkpoint, cp)
}

func TestShouldFire_InvalidExpressions(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"blank":    "   ",
		"garbage":  "every now and then",
		"seconds":  "0 0 */2 * * *",
		"fields":   "*/2 * * *",
		"overflow": "61 * * * *",
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			checkpoint := base.Add(-24 * time.Hour)
			fire, cp, err := ShouldFire(expr, checkpoint, base)
			require.Error(t, err)
			assert.True(t, syncerr.IsConfig(err))
			assert.False(t, fire)
			assert.Equal(t, checkpoint, cp)
		})
	}
}

func TestShouldFire_TimezonePrefix(t *testing.T) {
	// 09:00 in New York is 13:00 UTC in October.
	checkpoint := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)

	fire, _, err := ShouldFire("CRON_TZ=America/New_York 0 9 * * *", checkpoint, time.Date(2026, 10, 19, 12, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, fire)

	fire, _, err = ShouldFire("CRON_TZ=America/New_York 0 9 * * *", checkpoint, time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, fire)
}

func TestHold_PauseDropsMissedOccurrence(t *testing.T) {
	checkpoint := base.Add(-3 * time.Hour)

	// While paused the checkpoint follows the clock.
	cp := Hold(checkpoint, base)
	assert.Equal(t, base, cp)

	// Resuming a minute later does not replay the 10:00 / 12:00 occurrences.
	fire, _, err := ShouldFire("0 */2 * * *", cp, base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, fire)
}

func TestHold_KeepsFutureCheckpoint(t *testing.T) {
	future := base.Add(time.Hour)
	assert.Equal(t, future, Hold(future, base))
}

func TestNextAfter(t *testing.T) {
	next, err := NextAfter("0 0 * * *", base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), next)

	_, err = NextAfter("nope", base)
	assert.True(t, syncerr.IsConfig(err))
}
