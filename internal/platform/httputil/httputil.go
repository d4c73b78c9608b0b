// Package httputil holds request parsing helpers shared by the domain
// handlers: content-type checks, lenient numeric JSON fields and the date
// formats the dashboard sends.
package httputil

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/apperr"
)

// RequireJSON fails with 415 unless the request declares a JSON body.
func RequireJSON(c echo.Context) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.Contains(strings.ToLower(ct), echo.MIMEApplicationJSON) {
		return apperr.UnsupportedMedia("Content-Type must be application/json")
	}
	return nil
}

// Bind decodes the request body into v, mapping decode failures to 400.
func Bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperr.Invalid("invalid request body")
	}
	return nil
}

// ParamInt parses a path parameter as an integer id.
func ParamInt(c echo.Context, name string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return n, nil
}

// FlexInt decodes a JSON number or a numeric string. Present records that
// the key appeared in the body at all; Valid that it carried a usable number.
// null, "" and non-numeric strings are present but not valid.
type FlexInt struct {
	Value   int64
	Valid   bool
	Present bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	f.Present = true
	f.Valid = false
	n, ok := parseNumber(b)
	if !ok || n != float64(int64(n)) {
		return nil
	}
	f.Value, f.Valid = int64(n), true
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// Ptr returns the value as a pointer, nil when not valid.
func (f FlexInt) Ptr() *int64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// IntOf builds a valid FlexInt.
func IntOf(v int64) FlexInt { return FlexInt{Value: v, Valid: true, Present: true} }

// FlexFloat is FlexInt for fractional values.
type FlexFloat struct {
	Value   float64
	Valid   bool
	Present bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	f.Present = true
	f.Value, f.Valid = parseNumber(b)
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a pointer, nil when not valid.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FloatOf builds a valid FlexFloat.
func FloatOf(v float64) FlexFloat { return FlexFloat{Value: v, Valid: true, Present: true} }

func parseNumber(b []byte) (float64, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps, datetime-local values and plain
// dates. Zone-less values are read as UTC. An empty string returns nil.
func ParseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Invalid("invalid date: %s", s)
}

// ParseDay parses a YYYY-MM-DD date at 00:00 UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Invalid("invalid date: %s (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// EndOfDay returns the last representable millisecond of the day.
func EndOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Millisecond)
}
