package sqp

import (
	"testing"
	"time"
)

func TestParseWeek(t *testing.T) {
	w, err := ParseWeek("2025-W14")
	if err != nil {
		t.Fatalf("failed to parse week: %v", err)
	}
	if w.Year != 2025 || w.Num != 14 {
		t.Errorf("expected 2025/14, got %d/%d", w.Year, w.Num)
	}

	// Lowercase marker and single-digit week are accepted
	w, err = ParseWeek("2025-w4")
	if err != nil {
		t.Fatalf("failed to parse lowercase week: %v", err)
	}
	if w.String() != "2025-W04" {
		t.Errorf("expected canonical 2025-W04, got %s", w.String())
	}

	invalid := []string{"", "2025", "W14", "2025-W0", "2025-W54", "2025-14", "25-W14"}
	for _, s := range invalid {
		if _, err := ParseWeek(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseWeekOrDate(t *testing.T) {
	// Sunday 2025-04-06 is the start of the report week labeled 2025-W15
	w, err := ParseWeekOrDate("2025-04-06")
	if err != nil {
		t.Fatalf("failed to parse date: %v", err)
	}
	if w.String() != "2025-W15" {
		t.Errorf("expected 2025-W15 for Sunday start, got %s", w.String())
	}

	w, err = ParseWeekOrDate("2025-W15")
	if err != nil {
		t.Fatalf("failed to parse label: %v", err)
	}
	if w.String() != "2025-W15" {
		t.Errorf("expected 2025-W15, got %s", w.String())
	}

	if _, err := ParseWeekOrDate("last tuesday"); err == nil {
		t.Error("expected error for unparseable input")
	}
}

func TestWeekOfDateMidweek(t *testing.T) {
	// Wednesday stays in its own ISO week
	d := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	w := WeekOfDate(d)
	if w.String() != "2025-W15" {
		t.Errorf("expected 2025-W15, got %s", w.String())
	}
}

func TestWeekOrdering(t *testing.T) {
	cases := []struct {
		a, b  string
		after bool
	}{
		{"2025-W15", "2025-W14", true},
		{"2025-W14", "2025-W15", false},
		{"2025-W14", "2025-W14", false},
		{"2026-W01", "2025-W52", true},
		{"2025-W52", "2026-W01", false},
	}
	for _, tc := range cases {
		a, err := ParseWeek(tc.a)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.a, err)
		}
		b, err := ParseWeek(tc.b)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.b, err)
		}
		if a.After(b) != tc.after {
			t.Errorf("%s.After(%s): expected %v", tc.a, tc.b, tc.after)
		}
	}

	w, _ := ParseWeek("2025-W14")
	if !w.Equal(w) {
		t.Error("week should equal itself")
	}
	if w.Before(w) || w.After(w) {
		t.Error("week should not be before or after itself")
	}
}

func TestNormalizeKeyword(t *testing.T) {
	cases := map[string]string{
		"MG Scoop":       "mg scoop",
		"  mg   scoop  ": "mg scoop",
		"mg scoop":       "mg scoop",
		"\tMG\tSCOOP\n":  "mg scoop",
	}
	for in, want := range cases {
		if got := NormalizeKeyword(in); got != want {
			t.Errorf("NormalizeKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAbsentRecord(t *testing.T) {
	w, _ := ParseWeek("2025-W14")
	r := AbsentRecord("mg scoop", w)
	if !r.Missing {
		t.Error("absent record must be tagged missing")
	}
	if r.Volume != 0 {
		t.Errorf("absent record volume must be 0, got %d", r.Volume)
	}
	if r.Keyword != "mg scoop" || !r.Week.Equal(w) {
		t.Error("absent record must carry keyword and week")
	}
}
