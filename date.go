package forecast

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02"

// Date represents a date with day-level granularity.
type Date struct {
	y int        // year
	m time.Month // month
	d int        // day
}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// String formats the date in ISO-8601.
func (d Date) String() string { return d.time().Format(DateFormat) }

// IsZero returns true if the date is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns the canonical time.Time for that day (midnight UTC).
func (d Date) Time() time.Time { return d.time() }

// Format returns a textual representation of the date value formatted
// according to the layout defined by the argument.
func (d Date) Format(format string) string { return d.time().Format(format) }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Today returns the current date.
func Today() Date { return NewDate(time.Now().Date()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// AddMonth returns a new Date with the given number of months added.
func (d Date) AddMonth(i int) Date { return NewDate(d.y, d.m+time.Month(i), d.d) }

// StartOfMonth returns the first day of the date's month.
func (d Date) StartOfMonth() Date { return NewDate(d.y, d.m, 1) }

// EndOfMonth returns the last day of the date's month.
func (d Date) EndOfMonth() Date { return NewDate(d.y, d.m+1, 0) }

// MonthIndex returns the absolute month number (year*12 + month) of the date.
// The difference of two month indexes is the number of calendar months between them.
func (d Date) MonthIndex() int { return d.y*12 + int(d.m) - 1 }

// ParseDate parses a Date from a string. It is lenient and accepts formats
// like "2025-7-1" as well as the canonical "2025-07-01".
func ParseDate(str string) (Date, error) {
	str = strings.TrimSpace(str)
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return NewDate(on.Date()), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements the json specific way to unmarshal a date from a json string.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	on, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = on
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	str := d.String()
	return json.Marshal(&str)
}

// UnmarshalYAML implements yaml.Unmarshaler for dates in entity files.
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	on, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = on
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) { return d.String(), nil }

// check that a Date pointer is a valid json marshal/unmarshal type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange creates a new date range. If 'from' is after 'to', they are swapped.
func NewRange(from, to Date) Range {
	if from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains returns true if date is included in the range (boundaries included).
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Months returns an iterator that yields the first day of each calendar month
// from the month of From through the month of To, inclusive.
func (r Range) Months() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for m := r.From.StartOfMonth(); !m.After(r.To); m = m.AddMonth(1) {
			if !yield(m) {
				return
			}
		}
	}
}

// MonthCount returns the number of calendar months spanned by the range, inclusive.
func (r Range) MonthCount() int { return r.To.MonthIndex() - r.From.MonthIndex() + 1 }

// Identifier computes a unique identifier for the Range, used as part of
// cache keys.
func (r Range) Identifier() string { return fmt.Sprintf("%s_%s", r.From, r.To) }

func (r Range) String() string { return fmt.Sprintf("%s to %s", r.From, r.To) }
