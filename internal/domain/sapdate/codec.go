// Package sapdate decodes the compact SAP date (YYYYMMDD) and time (HHMMSS)
// encodings found in table extracts and renders them for display.
package sapdate

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrBlank is returned when a raw value carries no date or time.
	ErrBlank = errors.New("sapdate: no value")
	// ErrUnparseable is returned for non-blank values that do not decode.
	ErrUnparseable = errors.New("sapdate: unparseable value")
)

// Formats holds strftime style directives, the same notation SAP exports use.
type Formats struct {
	DateInput  string `yaml:"dateInput"`
	TimeInput  string `yaml:"timeInput"`
	DateOutput string `yaml:"dateOutput"`
	TimeOutput string `yaml:"timeOutput"`
}

// DefaultFormats returns %Y%m%d / %H%M%S in, %Y-%m-%d / %H:%M:%S out.
func DefaultFormats() Formats {
	return Formats{
		DateInput:  "%Y%m%d",
		TimeInput:  "%H%M%S",
		DateOutput: "%Y-%m-%d",
		TimeOutput: "%H:%M:%S",
	}
}

// Codec decodes and renders SAP dates using a fixed set of formats.
// The zero value is not usable, build one with NewCodec or Default.
type Codec struct {
	dateIn  string
	timeIn  string
	dateOut string
	timeOut string
}

// NewCodec translates f into Go layouts. Empty fields fall back to defaults.
func NewCodec(f Formats) Codec {
	def := DefaultFormats()
	if f.DateInput == "" {
		f.DateInput = def.DateInput
	}
	if f.TimeInput == "" {
		f.TimeInput = def.TimeInput
	}
	if f.DateOutput == "" {
		f.DateOutput = def.DateOutput
	}
	if f.TimeOutput == "" {
		f.TimeOutput = def.TimeOutput
	}
	return Codec{
		dateIn:  Layout(f.DateInput),
		timeIn:  Layout(f.TimeInput),
		dateOut: Layout(f.DateOutput),
		timeOut: Layout(f.TimeOutput),
	}
}

// Default is the codec built from DefaultFormats.
func Default() Codec { return NewCodec(DefaultFormats()) }

// IsZero reports whether c is the zero Codec, which cannot parse anything.
func (c Codec) IsZero() bool { return c == Codec{} }

// OrDefault returns c, or Default when c is zero.
func (c Codec) OrDefault() Codec {
	if c.IsZero() {
		return Default()
	}
	return c
}

// free-form layouts tried when the value is not the compact 8-digit form
var fallbackLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
	"2006/01/02",
	"2006.01.02",
}

// ParseDate decodes a raw date cell.
// 8-digit values are read strictly with the input format; anything else
// goes through a small list of common layouts.
func (c Codec) ParseDate(raw string) (time.Time, error) {
	v := Normalize(raw)
	if IsBlank(v) || v == "00000000" {
		return time.Time{}, ErrBlank
	}
	if len(v) == 8 && isDigits(v) {
		t, err := time.Parse(c.dateIn, v)
		if err != nil {
			return time.Time{}, ErrUnparseable
		}
		return t, nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrUnparseable
}

// ParseTime decodes a raw time cell. Short numeric values are left-padded
// to six digits, so 93015 reads as 09:30:15.
func (c Codec) ParseTime(raw string) (time.Time, error) {
	v := Normalize(raw)
	if IsBlank(v) {
		return time.Time{}, ErrBlank
	}
	if isDigits(v) && len(v) <= 6 {
		v = strings.Repeat("0", 6-len(v)) + v
		if v == "000000" {
			return time.Time{}, ErrBlank
		}
		t, err := time.Parse(c.timeIn, v)
		if err != nil {
			return time.Time{}, ErrUnparseable
		}
		return t, nil
	}
	if t, err := time.Parse("15:04:05", v); err == nil {
		return t, nil
	}
	return time.Time{}, ErrUnparseable
}

// FormatDate renders a raw date. Blank input gives "", undecodable input
// is returned unchanged.
func (c Codec) FormatDate(raw string) string {
	t, err := c.ParseDate(raw)
	switch {
	case errors.Is(err, ErrBlank):
		return ""
	case err != nil:
		return strings.TrimSpace(raw)
	}
	return t.Format(c.dateOut)
}

// FormatTime renders a raw time with the same rules as FormatDate.
func (c Codec) FormatTime(raw string) string {
	t, err := c.ParseTime(raw)
	switch {
	case errors.Is(err, ErrBlank):
		return ""
	case err != nil:
		return strings.TrimSpace(raw)
	}
	return t.Format(c.timeOut)
}

// FormatDateTime joins a date and a time cell into one display string.
func (c Codec) FormatDateTime(date, clock string) string {
	d := c.FormatDate(date)
	t := c.FormatTime(clock)
	switch {
	case d == "" && t == "":
		return "Not available"
	case d == "":
		return "Unknown date at " + t
	case t == "":
		return d + " at unknown time"
	}
	return d + " " + t
}

// Render formats an already decoded date with the output format.
func (c Codec) Render(t time.Time) string { return t.Format(c.dateOut) }

// IsBlank reports whether v is one of the null-like tokens produced by
// spreadsheets and dataframe exports.
func IsBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "nat", "none", "null":
		return true
	}
	return false
}

// IsPermanent reports whether the raw date is one of the "valid forever"
// sentinels (9999xxxx or 2999xxxx).
func IsPermanent(raw string) bool {
	v := Normalize(raw)
	return strings.HasPrefix(v, "9999") || strings.HasPrefix(v, "2999")
}

// IsExpired reports whether raw decodes to a calendar date strictly before
// today. Blank, permanent and undecodable values never expire.
func (c Codec) IsExpired(raw string, today time.Time) bool {
	if IsBlank(raw) || IsPermanent(raw) {
		return false
	}
	t, err := c.ParseDate(raw)
	if err != nil {
		return false
	}
	return t.Before(Day(today))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize trims v and collapses integral numeric text such as
// "20200101.0" or "2.0200101E7" to its integer form.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || !strings.ContainsAny(v, ".eE") {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int64(f)) {
		return v
	}
	return strconv.FormatInt(int64(f), 10)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
