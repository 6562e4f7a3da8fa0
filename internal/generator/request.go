package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carpenike/repcoach/internal/program"
)

// Range names a multi-day batch.
type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

// Days returns the number of programs a range yields, or 0 for an unknown
// range.
func (r Range) Days() int {
	switch r {
	case RangeWeek:
		return 7
	case RangeMonth:
		return 30
	default:
		return 0
	}
}

// Request is the body of a generation request.
type Request struct {
	UID       string          `json:"uid"`
	Objectif  string          `json:"objectif,omitempty"`
	Date      string          `json:"date,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Range     Range           `json:"range,omitempty"`
	StartDate string          `json:"startDate,omitempty"`
}

// Validate checks the request without touching the model. Every failure
// wraps ErrInvalidRequest.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.UID) == "" {
		return fmt.Errorf("%w: uid missing", ErrInvalidRequest)
	}
	if r.Range != "" && r.Range.Days() == 0 {
		return fmt.Errorf("%w: unknown range %q", ErrInvalidRequest, r.Range)
	}
	if _, err := parseDate(r.Date); err != nil {
		return fmt.Errorf("%w: date: %v", ErrInvalidRequest, err)
	}
	if _, err := parseDate(r.StartDate); err != nil {
		return fmt.Errorf("%w: startDate: %v", ErrInvalidRequest, err)
	}
	if len(bytes.TrimSpace(r.Stats)) > 0 && !json.Valid(r.Stats) {
		return fmt.Errorf("%w: stats is not valid JSON", ErrInvalidRequest)
	}
	return nil
}

// IsBatch reports whether the request asks for a week or a month.
func (r *Request) IsBatch() bool {
	return r.Range != ""
}

// TargetDate returns the day a daily program is generated for: date when
// set, else today in UTC.
func (r *Request) TargetDate(now time.Time) (time.Time, error) {
	return resolveDate(now, r.Date)
}

// BatchStart returns the first day of a batch: startDate, then date, then
// today in UTC.
func (r *Request) BatchStart(now time.Time) (time.Time, error) {
	return resolveDate(now, r.StartDate, r.Date)
}

func resolveDate(now time.Time, candidates ...string) (time.Time, error) {
	for _, c := range candidates {
		d, err := parseDate(c)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if !d.IsZero() {
			return d, nil
		}
	}
	return today(now), nil
}

// parseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(program.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	return d, nil
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
