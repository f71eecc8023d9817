// Package calendarx centralizes the reference-time/epoch arithmetic that
// would otherwise be scattered across backends as hand-copied constants:
// FIT's 1989 epoch and day-of-year reference timestamps, built on
// github.com/soniakeys/meeus/v3/julian the same way the teacher's
// PROCESSING_PARAMETERS record parser (decode/params.go parse_reftime)
// turns a "yyyy/ddd hh:mm:ss" reference time into a calendar date via
// julian.DayOfYearToCalendar/julian.LeapYearGregorian.
package calendarx

import (
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// FitEpoch is the FIT format's reference epoch, 1989-12-31 00:00:00 UTC
// (spec.md §4.6), derived through a Julian-day round trip rather than
// hand-copied as a Unix-seconds literal.
var FitEpoch = julianDate(1989, 12, 31)

// FitEpochOffset is the number of seconds between FitEpoch and the Unix
// epoch: time.Unix(fitSeconds+FitEpochOffset, 0) converts a FIT-epoch
// timestamp to a Unix one.
var FitEpochOffset = FitEpoch.Unix()

func julianDate(year, month int, day float64) time.Time {
	jd := julian.CalendarGregorianToJD(year, month, day)
	return julian.JDToTime(jd)
}

// DayOfYearToTime parses a "yyyy/ddd hh:mm:ss" reference timestamp, the
// same format and conversion decode/params.go's parse_reftime handles
// for the PROCESSING_PARAMETERS record, for any backend whose wire
// protocol reports a day-of-year rather than a Unix timestamp.
func DayOfYearToTime(s string) (time.Time, bool) {
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return time.Time{}, false
	}

	ymd := strings.Split(parts[0], "/")
	if len(ymd) != 2 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(ymd[0])
	if err != nil {
		return time.Time{}, false
	}
	doy, err := strconv.Atoi(ymd[1])
	if err != nil {
		return time.Time{}, false
	}
	month, day := julian.DayOfYearToCalendar(doy, julian.LeapYearGregorian(year))

	hms := strings.Split(parts[1], ":")
	if len(hms) != 3 {
		return time.Time{}, false
	}
	var clock [3]int
	for i, v := range hms {
		n, err := strconv.Atoi(v)
		if err != nil {
			return time.Time{}, false
		}
		clock[i] = n
	}

	return time.Date(year, time.Month(month), day, clock[0], clock[1], clock[2], 0, time.UTC), true
}
