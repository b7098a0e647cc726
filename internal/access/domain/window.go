package domain

import (
	"fmt"
	"time"
)

// SecondsPerDay bounds TimeOfDay.
const SecondsPerDay = 24 * 60 * 60

// TimeOfDay is a local wall-clock instant with second precision, stored as
// seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(time.TimeOnly, s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute(), t.Second()), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for compiled-in tables.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayOf drops the date (and sub-second part) from t, in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return Clock(h, m, s)
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < SecondsPerDay }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

// Window is an inclusive time-of-day interval. Start after End means the
// window wraps past midnight.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether now falls inside the window, both ends inclusive.
func (w Window) Contains(now TimeOfDay) bool {
	if w.Start <= w.End {
		return w.Start <= now && now <= w.End
	}
	return now >= w.Start || now <= w.End
}

func (w Window) Wraps() bool { return w.Start > w.End }

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }
