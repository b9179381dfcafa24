// Package temporal resolves relative or partially specified timestamps into
// absolute, timezone-qualified instants.
package temporal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultDurationMinutes is assumed when a schedule request carries a start
// time but neither an end time nor a duration.
const DefaultDurationMinutes = 60

// ErrInvalidTime marks a start instant that could not be parsed. Callers
// convert it into a structured result; it must never escape the loop raw.
var ErrInvalidTime = errors.New("invalid time format")

// Layouts accepted for zone-naive inputs, tried in order.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04",
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// Resolver converts caller-supplied time expressions against a fixed
// reference instant. A fresh resolver is built once per model consultation
// round so long sessions stay temporally accurate.
type Resolver struct {
	now time.Time
	loc *time.Location
}

// NewResolver builds a resolver for the given reference time and caller
// timezone. The timezone may be an offset like "+05:00" or an IANA name;
// anything unparsable falls back to the server's local zone.
func NewResolver(now time.Time, timezone string) *Resolver {
	loc := resolveLocation(timezone)
	return &Resolver{now: now.In(loc), loc: loc}
}

// Now returns the resolver's reference instant in the caller zone.
func (r *Resolver) Now() time.Time {
	return r.now
}

func resolveLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.Local
	}
	if m := offsetPattern.FindStringSubmatch(timezone); m != nil {
		hours, _ := strconv.Atoi(m[2])
		mins, _ := strconv.Atoi(m[3])
		secs := hours*3600 + mins*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone("UTC"+m[1]+m[2]+":"+m[3], secs)
	}
	if loc, err := time.LoadLocation(timezone); err == nil {
		return loc
	}
	return time.Local
}

// ResolveWindow produces absolute RFC3339 start and end instants from a
// start expression plus either an end expression or a duration in minutes.
// Zone-naive inputs are interpreted in the caller zone and annotated with
// its offset before any arithmetic.
func (r *Resolver) ResolveWindow(start, end string, durationMin int) (string, string, error) {
	startAt, err := r.parse(start)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTime, start)
	}

	var endAt time.Time
	if end != "" {
		endAt, err = r.parse(end)
		if err != nil {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidTime, end)
		}
	} else {
		if durationMin <= 0 {
			durationMin = DefaultDurationMinutes
		}
		endAt = startAt.Add(time.Duration(durationMin) * time.Minute)
	}

	return startAt.Format(time.RFC3339), endAt.Format(time.RFC3339), nil
}

// ResolveInstant resolves a single time expression to an absolute RFC3339
// instant, interpreting naive forms in the caller zone.
func (r *Resolver) ResolveInstant(value string) (string, error) {
	t, err := r.parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return t.Format(time.RFC3339), nil
}

// parse accepts RFC3339 instants as-is and interprets naive forms in the
// caller zone. A bare clock time resolves to today at the reference date.
func (r *Resolver) parse(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, ErrInvalidTime
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		t, err := time.ParseInLocation(layout, value, r.loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			t = time.Date(r.now.Year(), r.now.Month(), r.now.Day(),
				t.Hour(), t.Minute(), 0, 0, r.loc)
		}
		return t, nil
	}
	return time.Time{}, ErrInvalidTime
}

// SystemContext is the wall-clock block injected into time-sensitive action
// arguments so handlers never have to query the clock themselves.
type SystemContext struct {
	CurrentTime string `json:"current_time"`
	Weekday     string `json:"weekday"`
	UTCOffset   string `json:"utc_offset"`
}

// SystemContext captures the round's reference instant for arg injection.
func (r *Resolver) SystemContext() SystemContext {
	return SystemContext{
		CurrentTime: r.now.Format(time.RFC3339),
		Weekday:     r.now.Weekday().String(),
		UTCOffset:   r.now.Format("-07:00"),
	}
}

// Map renders the context as a free-form argument value.
func (s SystemContext) Map() map[string]any {
	return map[string]any{
		"current_time": s.CurrentTime,
		"weekday":      s.Weekday,
		"utc_offset":   s.UTCOffset,
	}
}
