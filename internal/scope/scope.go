// package scope resolves scope tokens such as "ytd" or "2023-06" into UTC date intervals.
package scope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/shared"
)

// InvalidScopeError reports a token that matched none of the accepted forms.
type InvalidScopeError struct {
	Token    string
	Accepted []string
	Reason   string
}

func (e *InvalidScopeError) Error() string {
	msg := fmt.Sprintf("invalid scope %q", e.Token)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + fmt.Sprintf(" (accepted: %s)", strings.Join(e.Accepted, ", "))
}

// Is matches [shared.ErrInvalidScope].
func (e *InvalidScopeError) Is(target error) bool {
	return target == shared.ErrInvalidScope
}

// errNoMatch means a form does not apply to the token and the next form should be tried.
var errNoMatch = errors.New("no match")

type form struct {
	name  string
	parse func(token string, today time.Time) (models.DateInterval, error)
}

// forms are tried in order: keywords first, then fixed-width numeric patterns.
var forms = []form{
	{name: "last-month", parse: keyword("last-month", lastMonth)},
	{name: "last-year", parse: keyword("last-year", lastYear)},
	{name: "ytd", parse: keyword("ytd", yearToDate)},
	{name: "YYYY", parse: parseYear},
	{name: "YYYY-MM", parse: parseYearMonth},
}

// Forms lists the accepted token forms in the order they are tried.
func Forms() []string {
	names := make([]string, len(forms))
	for i, f := range forms {
		names[i] = f.name
	}
	return names
}

// Resolve maps token to a half-open UTC interval relative to now's UTC calendar date.
//
// Failures are [*InvalidScopeError] values matching [shared.ErrInvalidScope].
func Resolve(token string, now time.Time) (models.DateInterval, error) {
	u := now.UTC()
	today := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	for _, f := range forms {
		interval, err := f.parse(token, today)
		if errors.Is(err, errNoMatch) {
			continue
		}
		if err != nil {
			return models.DateInterval{}, &InvalidScopeError{Token: token, Accepted: Forms(), Reason: err.Error()}
		}
		return interval, nil
	}

	return models.DateInterval{}, &InvalidScopeError{Token: token, Accepted: Forms()}
}

func keyword(word string, fn func(today time.Time) models.DateInterval) func(string, time.Time) (models.DateInterval, error) {
	return func(token string, today time.Time) (models.DateInterval, error) {
		if token != word {
			return models.DateInterval{}, errNoMatch
		}
		return fn(today), nil
	}
}

func monthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(year int) time.Time {
	return monthStart(year, time.January)
}

func lastMonth(today time.Time) models.DateInterval {
	end := monthStart(today.Year(), today.Month())
	return models.DateInterval{Start: end.AddDate(0, -1, 0), End: end}
}

func lastYear(today time.Time) models.DateInterval {
	return models.DateInterval{Start: yearStart(today.Year() - 1), End: yearStart(today.Year())}
}

func yearToDate(today time.Time) models.DateInterval {
	return models.DateInterval{Start: yearStart(today.Year()), End: today.AddDate(0, 0, 1)}
}

func parseYear(token string, _ time.Time) (models.DateInterval, error) {
	year, ok := digits(token, 4, 4)
	if !ok {
		return models.DateInterval{}, errNoMatch
	}
	return models.DateInterval{Start: yearStart(year), End: yearStart(year + 1)}, nil
}

func parseYearMonth(token string, _ time.Time) (models.DateInterval, error) {
	y, m, found := strings.Cut(token, "-")
	if !found {
		return models.DateInterval{}, errNoMatch
	}

	year, ok := digits(y, 4, 4)
	if !ok {
		return models.DateInterval{}, errNoMatch
	}
	month, ok := digits(m, 1, 2)
	if !ok {
		return models.DateInterval{}, errNoMatch
	}
	if month < 1 || month > 12 {
		return models.DateInterval{}, fmt.Errorf("month %s is outside 01-12", m)
	}

	start := monthStart(year, time.Month(month))
	return models.DateInterval{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// digits parses s when it is lo to hi ASCII digits long.
func digits(s string, lo, hi int) (int, bool) {
	if len(s) < lo || len(s) > hi {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
