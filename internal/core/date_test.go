package core

import "testing"

func TestParseDate(t *testing.T) {
	cases := []struct {
		in    string
		month string
		day   int
	}{
		{"31/01/2024", "2024-01", 31},
		{"01/02/2024", "2024-02", 1},
		{"1/2/2024", "2024-02", 1},
		{"15-03-2024", "2024-03", 15},
		{"15.03.2024", "2024-03", 15},
		{"31/01/2024 14:30", "2024-01", 31},
		{"2024-01-31", "2024-01", 31},
		{"2024-01-31T10:00:00", "2024-01", 31},
		{"05-Apr-2024", "2024-04", 5},
		{"31-Jan-24", "2024-01", 31},
		{"31 January 2024", "2024-01", 31},
		{"7 March 2024", "2024-03", 7},
		{"2024/01/31", "2024-01", 31},
		{"2024/01/31 08:15", "2024-01", 31},
	}
	for _, tc := range cases {
		d := ParseDate(tc.in)
		if !d.Valid {
			t.Fatalf("%q: expected valid date", tc.in)
		}
		if d.MonthKey() != tc.month || d.Day() != tc.day {
			t.Fatalf("%q: got %s day %d", tc.in, d.MonthKey(), d.Day())
		}
	}
}

func TestParseDateMissing(t *testing.T) {
	for _, in := range []string{"", "not a date", "32/01/2024", "31/13/2024", "2024/31/01"} {
		d := ParseDate(in)
		if d.Valid {
			t.Fatalf("%q: expected missing, got %v", in, d.Time)
		}
		if d.MonthKey() != "" || d.String() != "" {
			t.Fatalf("%q: missing date should have empty key and text", in)
		}
	}
}

func TestDateString(t *testing.T) {
	if got := NewDate(2024, 1, 5).String(); got != "2024-01-05" {
		t.Fatalf("date only: %q", got)
	}
	if got := ParseDate("05/01/2024 09:15").String(); got != "2024-01-05 09:15:00" {
		t.Fatalf("with time: %q", got)
	}
}
