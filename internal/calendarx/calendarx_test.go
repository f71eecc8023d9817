package calendarx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitEpochIsDecemberThirtyFirstNineteenEightyNine(t *testing.T) {
	assert.Equal(t, 1989, FitEpoch.Year())
	assert.Equal(t, time.December, FitEpoch.Month())
	assert.Equal(t, 31, FitEpoch.Day())
}

func TestFitEpochOffsetConvertsFitSecondsToUnix(t *testing.T) {
	converted := time.Unix(0+FitEpochOffset, 0).UTC()
	assert.True(t, converted.Equal(FitEpoch.UTC()))
}

func TestDayOfYearToTimeMatchesCalendarDate(t *testing.T) {
	got, ok := DayOfYearToTime("1970/001 00:00:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDayOfYearToTimeHandlesLeapYearRollover(t *testing.T) {
	got, ok := DayOfYearToTime("2020/060 12:30:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, time.February, 29, 12, 30, 0, 0, time.UTC), got)
}

func TestDayOfYearToTimeRejectsMalformedInput(t *testing.T) {
	_, ok := DayOfYearToTime("not-a-timestamp")
	assert.False(t, ok)
}
