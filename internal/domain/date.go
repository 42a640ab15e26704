package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date used for relationship and assignment ranges.
// It accepts both "2006-01-02" and RFC 3339 input and always renders as a
// plain date.
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date-only or RFC 3339 string
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t.UTC()}, nil
}

// DatePtr returns a pointer to d
func DatePtr(d Date) *Date {
	return &d
}

// String renders the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// OptionalDate is an update field that tells an absent key from an explicit
// null. Set is true whenever the key was present; a null leaves Value nil.
type OptionalDate struct {
	Set   bool
	Value *Date
}

// SetDate returns an OptionalDate that writes d
func SetDate(d Date) OptionalDate {
	return OptionalDate{Set: true, Value: &d}
}

// ClearDate returns an OptionalDate that removes the stored date
func ClearDate() OptionalDate {
	return OptionalDate{Set: true}
}

// Apply returns the value to store given the current one
func (o OptionalDate) Apply(current *Date) *Date {
	if !o.Set {
		return current
	}
	return o.Value
}

// MarshalJSON implements json.Marshaler
func (o OptionalDate) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return o.Value.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler. encoding/json calls it for an
// explicit null but not for a missing key.
func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	if string(b) == "null" {
		return nil
	}
	var d Date
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	o.Value = &d
	return nil
}

// SameDate reports whether two optional dates are equal
func SameDate(a, b *Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b.Time)
}

// ValidRange reports whether start <= end when both are present
func ValidRange(start, end *Date) bool {
	if start == nil || end == nil {
		return true
	}
	return !start.After(end.Time)
}

// RangesOverlap reports whether two date ranges share at least one day.
// A missing bound is open-ended.
func RangesOverlap(start1, end1, start2, end2 *Date) bool {
	if start1 != nil && end2 != nil && start1.After(end2.Time) {
		return false
	}
	if start2 != nil && end1 != nil && start2.After(end1.Time) {
		return false
	}
	return true
}

// DateFromTime converts an optional timestamp from storage
func DateFromTime(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{t.UTC()}
}

// TimeOf converts an optional date for storage
func TimeOf(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
