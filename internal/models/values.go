package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Excel stores dates as serial day numbers. Anything outside this range is
// not treated as a date serial.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31

	secondsPerDay = 24 * 60 * 60
)

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
}

// ParseDecimalFromString parses an amount. Currency symbols, thousands
// separators and accounting style parentheses are accepted.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string has no digits")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseNullDecimal parses an amount cell. A blank cell yields an invalid
// NullDecimal without error.
func ParseNullDecimal(s string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseDecimalFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseDate parses a calendar date from text or an Excel serial number. The
// result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid excel date serial '%s': %w", s, err)
		}
		return DateOnly(t), nil
	}

	return parseDateLayouts(s)
}

// ParseTextDate parses a date written as text. Excel serial numbers are not
// accepted, so a bare number such as 45000 is an error.
func ParseTextDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}
	return parseDateLayouts(s)
}

func parseDateLayouts(s string) (time.Time, error) {
	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return DateOnly(t), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// ParseOptionalDate parses a workbook date cell, which may hold an Excel
// serial. A blank cell yields nil without error.
func ParseOptionalDate(s string) (*time.Time, error) {
	return parseOptional(s, ParseDate)
}

// ParseOptionalTextDate parses a date field of a delimited text file. A
// blank field yields nil without error.
func ParseOptionalTextDate(s string) (*time.Time, error) {
	return parseOptional(s, ParseTextDate)
}

func parseOptional(s string, parse func(string) (time.Time, error)) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DateOnly drops the clock part and location of t
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from start to end. It is
// negative when end is before start.
func DaysBetween(start, end time.Time) int {
	return int((DateOnly(end).Unix() - DateOnly(start).Unix()) / secondsPerDay)
}

// FormatDate renders a date the way reports show it
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("01/02/2006")
}

// FormatCurrency renders an amount as dollars with thousands separators,
// e.g. -$1,234.50
func FormatCurrency(d decimal.Decimal, places int32) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(places)
	whole, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		whole, frac = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	return sign + "$" + b.String() + frac
}
