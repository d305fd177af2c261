package models

import (
	"fmt"
	"strings"
	"time"
)

// Item is one entry of the activity stream.
type Item struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	User      string        `json:"user,omitempty"`
	Kind      string        `json:"kind,omitempty"` // track or track-repost
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Month returns the [MonthKey] of the item's creation instant in UTC.
func (i Item) Month() MonthKey {
	return MonthOf(i.CreatedAt)
}

// MonthKey is a calendar month used as the bucket key and collection title.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) MonthKey {
	u := t.UTC()
	return MonthKey{Year: u.Year(), Month: u.Month()}
}

// String renders the key as YYYY-MM.
func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before orders keys chronologically.
func (m MonthKey) Before(o MonthKey) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// LengthBand selects items by duration. The zero value matches everything.
type LengthBand int

const (
	AllLengths LengthBand = iota
	Short                 // [0, 5m)
	Medium                // [5m, 20m)
	Long                  // [20m, ∞)
)

const (
	ShortMax  = 5 * time.Minute
	MediumMax = 20 * time.Minute
)

// ParseLengthBand accepts short, medium, long or all (case-insensitive). An empty string means all.
func ParseLengthBand(s string) (LengthBand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllLengths, nil
	case "short":
		return Short, nil
	case "medium":
		return Medium, nil
	case "long":
		return Long, nil
	default:
		return AllLengths, fmt.Errorf("unknown length filter %q (expected short, medium, long or all)", s)
	}
}

// BandOf returns the band a non-negative duration falls into.
func BandOf(d time.Duration) LengthBand {
	switch {
	case d < ShortMax:
		return Short
	case d < MediumMax:
		return Medium
	default:
		return Long
	}
}

// MarshalText encodes the band by name.
func (b LengthBand) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a band name.
func (b *LengthBand) UnmarshalText(text []byte) error {
	band, err := ParseLengthBand(string(text))
	if err != nil {
		return err
	}
	*b = band
	return nil
}

func (b LengthBand) String() string {
	switch b {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	default:
		return "all"
	}
}

// Collection is a remote playlist.
type Collection struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Sharing    string `json:"sharing"`
	TrackCount int    `json:"track_count"`
}
