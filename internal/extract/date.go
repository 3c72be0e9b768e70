package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

var errInvalidDate = errors.New("invalid calendar date")

// NormalizeYear converts a slip year to the Gregorian calendar.
// Two-digit years are Buddhist Era short forms (68 is 2568); any year
// past 2400 is Buddhist Era and loses 543.
func NormalizeYear(year int) int {
	if year < 100 {
		year += 2500
	}
	if year > 2400 {
		year -= 543
	}
	return year
}

// dateMatcher is one date pattern family. Families are tried in order and
// the first one that both matches and parses wins.
type dateMatcher struct {
	source DateSource
	re     *regexp.Regexp
	parse  func(m []string) (civil.Date, error)
}

var dateMatchers = []dateMatcher{
	{
		source: DateFromThaiLongForm,
		re:     regexp.MustCompile(`(?:^|\D)(\d{1,2})\s*(` + thaiMonthAlternation() + `)\s*(\d{4}|\d{2})(?:\D|$)`),
		parse: func(m []string) (civil.Date, error) {
			month, ok := ThaiMonthLexicon[m[2]]
			if !ok {
				return civil.Date{}, fmt.Errorf("unknown month %q", m[2])
			}
			return calendarDate(m[3], month, m[1])
		},
	},
	{
		source: DateFromNumeric,
		re:     regexp.MustCompile(`(?:^|\D)(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:\D|$)`),
		parse: func(m []string) (civil.Date, error) {
			return calendarDate(m[3], m[2], m[1])
		},
	},
	{
		source: DateFromISO,
		re:     regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{2})-(\d{2})(?:\D|$)`),
		parse: func(m []string) (civil.Date, error) {
			return calendarDate(m[1], m[2], m[3])
		},
	},
}

// calendarDate builds a date from captured year, month and day strings.
func calendarDate(year, month, day string) (civil.Date, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing year: %w", err)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing month: %w", err)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing day: %w", err)
	}

	date := civil.Date{Year: NormalizeYear(y), Month: time.Month(m), Day: d}
	if !date.IsValid() {
		return civil.Date{}, fmt.Errorf("%s: %w", date, errInvalidDate)
	}
	return date, nil
}

// ExtractDate finds the slip date in normalized text. It never fails:
// with no usable pattern it returns the date of now.
func ExtractDate(text string, now time.Time) (civil.Date, DateSource) {
	for _, dm := range dateMatchers {
		m := dm.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		date, err := dm.parse(m)
		if err != nil {
			continue
		}
		return date, dm.source
	}
	return civil.DateOf(now), DateDefaulted
}
