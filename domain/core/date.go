package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PartialDate is a (year, month) pair where either part may be unknown.
// A month is only meaningful when the year is present.
type PartialDate struct {
	Year  *int
	Month *int
}

// YearMonth creates a fully specified partial date.
func YearMonth(year, month int) PartialDate {
	return PartialDate{Year: &year, Month: &month}
}

// YearOnly creates a partial date with an unknown month.
func YearOnly(year int) PartialDate {
	return PartialDate{Year: &year}
}

// UnknownDate returns a partial date with neither year nor month.
func UnknownDate() PartialDate {
	return PartialDate{}
}

// HasYear reports whether the year is known.
func (d PartialDate) HasYear() bool { return d.Year != nil }

// HasMonth reports whether both year and month are known.
func (d PartialDate) HasMonth() bool { return d.Year != nil && d.Month != nil }

// IsUnknown reports whether nothing is known about the date.
func (d PartialDate) IsUnknown() bool { return d.Year == nil }

// Validate checks the month-implies-year rule and the month range.
func (d PartialDate) Validate() error {
	if d.Month == nil {
		return nil
	}
	if d.Year == nil {
		return fmt.Errorf("%w: month %d without year", ErrInvalidDate, *d.Month)
	}
	if *d.Month < 1 || *d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, *d.Month)
	}
	return nil
}

// Comparable reports whether a and b can be ordered at all: both years known.
func Comparable(a, b PartialDate) bool {
	return a.Year != nil && b.Year != nil
}

// Before reports whether a is known to lie strictly before b.
// Pairs that are not comparable, or share a year without both months, are
// unordered and Before returns false in both directions.
func Before(a, b PartialDate) bool {
	if !Comparable(a, b) {
		return false
	}
	if *a.Year != *b.Year {
		return *a.Year < *b.Year
	}
	if a.Month == nil || b.Month == nil {
		return false
	}
	return *a.Month < *b.Month
}

// After reports whether a is known to lie strictly after b.
func After(a, b PartialDate) bool {
	return Before(b, a)
}

// SameMonth reports whether both dates are fully specified and equal.
func SameMonth(a, b PartialDate) bool {
	return a.HasMonth() && b.HasMonth() && *a.Year == *b.Year && *a.Month == *b.Month
}

// CompareNullsFirst is the total order used to pick the latest of several
// dates. A missing year sorts before any year and a missing month before any
// month of the same year. It must not be used to decide whether one event
// happened between two others; use Before and After for that.
func CompareNullsFirst(a, b PartialDate) int {
	if c := compareOptional(a.Year, b.Year); c != 0 {
		return c
	}
	return compareOptional(a.Month, b.Month)
}

func compareOptional(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// ParsePartialDate accepts "YYYY-MM", "YYYY" or an empty string.
func ParsePartialDate(s string) (PartialDate, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return UnknownDate(), nil
	}

	yearPart, monthPart, hasMonth := strings.Cut(s, "-")
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return PartialDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if !hasMonth {
		return YearOnly(year), nil
	}

	month, err := strconv.Atoi(monthPart)
	if err != nil {
		return PartialDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d := YearMonth(year, month)
	if err := d.Validate(); err != nil {
		return PartialDate{}, err
	}
	return d, nil
}

// String renders the date as "YYYY-MM", "YYYY" or "unknown".
func (d PartialDate) String() string {
	switch {
	case d.HasMonth():
		return fmt.Sprintf("%04d-%02d", *d.Year, *d.Month)
	case d.HasYear():
		return fmt.Sprintf("%04d", *d.Year)
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the date as its string form, or null when unknown.
func (d PartialDate) MarshalJSON() ([]byte, error) {
	if d.IsUnknown() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *PartialDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = UnknownDate()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParsePartialDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
