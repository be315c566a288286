package timeutil

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30). All workflow
// timestamps and the "requested date is not in the past" check use the
// server clock in IST, never the client clock.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IST = time.FixedZone("IST", 5*60*60+30*60) // UTC+5:30
	}
}

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(IST)
}

// Today returns the start of the current day (00:00:00) in IST.
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, IST)
}

// StartOfDay returns the start of day (00:00:00) in IST for the given time.
func StartOfDay(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// ParseDate parses a YYYY-MM-DD date string in IST.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, IST)
}

// Layouts used across the API.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
