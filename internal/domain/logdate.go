package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// LogDate is the calendar date a record is attributed to, independent of
// submission time.
type LogDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) LogDate {
	y, m, d := t.Date()
	return LogDate{Year: y, Month: m, Day: d}
}

// Today returns the local calendar date.
func Today() LogDate {
	return DateOf(time.Now().In(time.Local))
}

// ParseLogDate parses an ISO "YYYY-MM-DD" date.
func ParseLogDate(s string) (LogDate, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return LogDate{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero date.
func (d LogDate) IsZero() bool {
	return d == LogDate{}
}

// Time returns midnight of d in loc.
func (d LogDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n calendar days.
func (d LogDate) AddDays(n int) LogDate {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d LogDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes d as "YYYY-MM-DD".
func (d LogDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an RFC 3339 timestamp, keeping only
// the date part of the latter.
func (d *LogDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = LogDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("log date: %w", err)
	}
	if len(s) > len(dayLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*d = DateOf(t)
			return nil
		}
		s = s[:len(dayLayout)]
	}
	parsed, err := ParseLogDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
