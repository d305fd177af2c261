package models

import (
	"fmt"
	"time"
)

// DateInterval is the half-open range [Start, End) of UTC instants.
type DateInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t, normalized to UTC, falls in the interval.
func (d DateInterval) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(d.Start) && u.Before(d.End)
}

// Days returns the number of whole days the interval spans.
func (d DateInterval) Days() int {
	return int(d.End.Sub(d.Start).Hours() / 24)
}

func (d DateInterval) String() string {
	return fmt.Sprintf("[%s, %s)", d.Start.Format(time.DateOnly), d.End.Format(time.DateOnly))
}
