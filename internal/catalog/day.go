package catalog

import (
	"fmt"
	"time"
)

// Day is a calendar day in YYYY-MM-DD form. The dedup gate is keyed on
// (product_id, Day); storing the day as a plain string keeps the unique
// index comparison trivial and timezone-free once derived.
type Day string

// DayLayout is the wire and storage format for Day.
const DayLayout = "2006-01-02"

// DayOf truncates t to its calendar day in t's location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(DayLayout, s); err != nil {
		return "", fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day(s), nil
}

func (d Day) String() string { return string(d) }
