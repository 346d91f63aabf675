package core

import (
	"strings"
	"time"
)

// MonthKeyLayout formats a year-month grouping key, e.g. "2024-01".
const MonthKeyLayout = "2006-01"

// Date is a transaction date that may be missing.
type Date struct {
	time.Time
	Valid bool
}

// dayFirstLayouts are tried in order. Day-first layouts come before ISO so an
// ambiguous "01/02/2024" is read as 1 February.
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"2-1-2006",
	"02-01-2006 15:04",
	"02-01-2006 15:04:05",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// MissingDate returns the missing-date marker.
func MissingDate() Date {
	return Date{}
}

// NewDate builds a valid date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate reads a day-first date. Input that matches none of the accepted
// layouts yields the missing marker rather than an error.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return MissingDate()
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, Valid: true}
		}
	}
	return MissingDate()
}

// MonthKey returns the year-month key, or "" for a missing date.
func (d Date) MonthKey() string {
	if !d.Valid {
		return ""
	}
	return d.Format(MonthKeyLayout)
}

// String renders the date for export; the time is only included when present.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	if d.Hour() == 0 && d.Minute() == 0 && d.Second() == 0 {
		return d.Format("2006-01-02")
	}
	return d.Format("2006-01-02 15:04:05")
}
