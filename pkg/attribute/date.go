// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package attribute

import (
	"fmt"
	"time"
)

// Date is a CK_DATE: a calendar date with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date year-month-day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the empty date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return "0000-00-00"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) validate() error {
	if d.Year < 0 || d.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidValue, d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidValue, int(d.Month))
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidValue, d.Day)
	}
	return nil
}

// encodeDate writes d as the eight ASCII digits YYYYMMDD. The empty date
// encodes as zero bytes.
func encodeDate(d Date) ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)), nil
}

func decodeDate(b []byte) (Date, error) {
	if len(b) == 0 {
		return Date{}, nil
	}
	if len(b) != 8 {
		return Date{}, fmt.Errorf("%w: date must be 8 bytes, got %d", ErrInvalidValue, len(b))
	}
	year, err := digits(b[0:4])
	if err != nil {
		return Date{}, err
	}
	month, err := digits(b[4:6])
	if err != nil {
		return Date{}, err
	}
	day, err := digits(b[6:8])
	if err != nil {
		return Date{}, err
	}
	d := Date{Year: year, Month: time.Month(month), Day: day}
	if err := d.validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

func digits(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-digit %q in date", ErrInvalidValue, c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
