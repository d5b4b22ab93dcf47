package sqp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Week identifies one SQP reporting week in ISO-week form ("2025-W14").
// Weeks are totally ordered by (year, number); the store only accepts
// appends in strictly increasing order.
type Week struct {
	Year int
	Num  int
}

var weekLabelRe = regexp.MustCompile(`^(\d{4})-[Ww](\d{1,2})$`)

// ParseWeek parses a week label of the form "2025-W14".
func ParseWeek(s string) (Week, error) {
	m := weekLabelRe.FindStringSubmatch(s)
	if m == nil {
		return Week{}, fmt.Errorf("invalid week label %q (want YYYY-Www)", s)
	}
	var w Week
	if _, err := fmt.Sscanf(m[1], "%d", &w.Year); err != nil {
		return Week{}, fmt.Errorf("invalid week year in %q", s)
	}
	if _, err := fmt.Sscanf(m[2], "%d", &w.Num); err != nil {
		return Week{}, fmt.Errorf("invalid week number in %q", s)
	}
	if w.Num < 1 || w.Num > 53 {
		return Week{}, fmt.Errorf("week number out of range in %q", s)
	}
	return w, nil
}

// WeekOfDate returns the ISO week containing the given date.
// SQP report weeks start on Sunday; the Sunday itself belongs to the
// ISO week of the following Monday, matching the report's week label.
func WeekOfDate(t time.Time) Week {
	if t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	year, num := t.ISOWeek()
	return Week{Year: year, Num: num}
}

// ParseWeekOrDate accepts either a week label ("2025-W14") or a
// week-start date ("2025-04-06").
func ParseWeekOrDate(s string) (Week, error) {
	if weekLabelRe.MatchString(s) {
		return ParseWeek(s)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Week{}, fmt.Errorf("invalid week %q (want YYYY-Www or YYYY-MM-DD)", s)
	}
	return WeekOfDate(t), nil
}

// String renders the canonical label, e.g. "2025-W04".
func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Num)
}

// IsZero reports whether w is the zero week.
func (w Week) IsZero() bool {
	return w.Year == 0 && w.Num == 0
}

// MarshalJSON renders the week as its canonical label. The zero week
// renders as the empty string.
func (w Week) MarshalJSON() ([]byte, error) {
	if w.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(w.String())
}

// UnmarshalJSON parses a canonical week label.
func (w *Week) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*w = Week{}
		return nil
	}
	parsed, err := ParseWeek(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// MarshalYAML renders the week as its canonical label.
func (w Week) MarshalYAML() (interface{}, error) {
	if w.IsZero() {
		return "", nil
	}
	return w.String(), nil
}

// After reports whether w is strictly after o.
func (w Week) After(o Week) bool {
	if w.Year != o.Year {
		return w.Year > o.Year
	}
	return w.Num > o.Num
}

// Before reports whether w is strictly before o.
func (w Week) Before(o Week) bool {
	return o.After(w)
}

// Equal reports whether w and o identify the same week.
func (w Week) Equal(o Week) bool {
	return w.Year == o.Year && w.Num == o.Num
}
