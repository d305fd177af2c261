package scope

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scorg/internal/shared"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tc := []struct {
		name  string
		token string
		now   time.Time
		start time.Time
		end   time.Time
	}{
		{"last-month", "last-month", time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC), date(2024, 1, 1), date(2024, 2, 1)},
		{"last-month in january", "last-month", date(2024, 1, 5), date(2023, 12, 1), date(2024, 1, 1)},
		{"last-month after leap day", "last-month", date(2024, 3, 31), date(2024, 2, 1), date(2024, 3, 1)},
		{"last-year", "last-year", date(2024, 6, 1), date(2023, 1, 1), date(2024, 1, 1)},
		{"ytd", "ytd", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), date(2024, 1, 1), date(2024, 3, 11)},
		{"ytd on new years eve", "ytd", date(2023, 12, 31), date(2023, 1, 1), date(2024, 1, 1)},
		{"year", "2023", date(2030, 1, 1), date(2023, 1, 1), date(2024, 1, 1)},
		{"year month", "2023-06", date(2030, 1, 1), date(2023, 6, 1), date(2023, 7, 1)},
		{"year month december", "2023-12", date(2030, 1, 1), date(2023, 12, 1), date(2024, 1, 1)},
		{"single digit month", "2024-2", date(2030, 1, 1), date(2024, 2, 1), date(2024, 3, 1)},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.token, tt.now)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.token, err)
			}
			if !got.Start.Equal(tt.start) || !got.End.Equal(tt.end) {
				t.Errorf("Resolve(%q) = %s, want [%s, %s)", tt.token, got, tt.start.Format(time.DateOnly), tt.end.Format(time.DateOnly))
			}
		})
	}
}

func TestResolveUsesUTCDate(t *testing.T) {
	// 2024-03-01T01:00+05:00 is still February 29 in UTC.
	now := time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*60*60))

	got, err := Resolve("last-month", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Start.Equal(date(2024, 1, 1)) || !got.End.Equal(date(2024, 2, 1)) {
		t.Errorf("expected January 2024, got %s", got)
	}
}

func TestResolveYears(t *testing.T) {
	for year := 1999; year <= 2030; year++ {
		token := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")

		got, err := Resolve(token, date(2024, 1, 1))
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", token, err)
		}

		if got.Start.Month() != time.January || got.Start.Day() != 1 || got.Start.Year() != year {
			t.Errorf("%s: start %s is not Jan 1", token, got.Start)
		}
		if got.End.Year() != got.Start.Year()+1 {
			t.Errorf("%s: end year %d, want %d", token, got.End.Year(), got.Start.Year()+1)
		}

		days := got.Days()
		leap := year%4 == 0 && (year%100 != 0 || year%400 == 0)
		if (leap && days != 366) || (!leap && days != 365) {
			t.Errorf("%s: spans %d days (leap=%v)", token, days, leap)
		}
	}
}

func TestResolveMonths(t *testing.T) {
	for _, year := range []int{2023, 2024} {
		for month := time.January; month <= time.December; month++ {
			token := date(year, month, 1).Format("2006-01")

			got, err := Resolve(token, date(2024, 1, 1))
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", token, err)
			}

			wantEnd := date(year, month+1, 1)
			if month == time.December {
				wantEnd = date(year+1, time.January, 1)
			}
			if !got.End.Equal(wantEnd) {
				t.Errorf("%s: end %s, want %s", token, got.End, wantEnd)
			}
			if got.End.Day() != 1 {
				t.Errorf("%s: end is not the first of a month", token)
			}
		}
	}
}

func TestResolveInvalid(t *testing.T) {
	tokens := []string{"not-a-scope", "", "LAST-MONTH", "23", "20234", "2023-13", "2023-00", "2023-123", "2023-", "-06", "2023/06", "２０２３"}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			_, err := Resolve(token, date(2024, 1, 1))
			if err == nil {
				t.Fatalf("Resolve(%q) expected error", token)
			}
			if !errors.Is(err, shared.ErrInvalidScope) {
				t.Errorf("expected ErrInvalidScope, got %v", err)
			}

			var scopeErr *InvalidScopeError
			if !errors.As(err, &scopeErr) {
				t.Fatalf("expected *InvalidScopeError, got %T", err)
			}
			if scopeErr.Token != token {
				t.Errorf("expected token %q, got %q", token, scopeErr.Token)
			}
			if len(scopeErr.Accepted) != len(Forms()) {
				t.Errorf("expected accepted forms to be listed, got %v", scopeErr.Accepted)
			}
		})
	}
}

func TestInvalidScopeMessage(t *testing.T) {
	_, err := Resolve("2023-13", date(2024, 1, 1))
	msg := err.Error()

	for _, want := range []string{`"2023-13"`, "outside 01-12", "last-month", "YYYY-MM"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}
