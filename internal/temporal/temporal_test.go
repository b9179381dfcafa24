package temporal

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC)

func TestResolveWindowExplicitEnd(t *testing.T) {
	r := NewResolver(testNow, "+00:00")
	start, end, err := r.ResolveWindow("2026-02-09T14:00:00Z", "2026-02-09T15:30:00Z", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != "2026-02-09T14:00:00Z" || end != "2026-02-09T15:30:00Z" {
		t.Fatalf("unexpected window: %s .. %s", start, end)
	}
}

func TestResolveWindowNaiveStartGetsCallerOffset(t *testing.T) {
	r := NewResolver(testNow, "+05:00")
	start, end, err := r.ResolveWindow("14:00", "", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(start, "+05:00") {
		t.Fatalf("start missing caller offset: %s", start)
	}
	if !strings.HasSuffix(end, "+05:00") {
		t.Fatalf("end missing caller offset: %s", end)
	}
	if start != "2026-02-06T14:00:00+05:00" {
		t.Fatalf("unexpected start: %s", start)
	}
	if end != "2026-02-06T14:30:00+05:00" {
		t.Fatalf("end should be start+30m: %s", end)
	}
}

func TestResolveWindowDefaultDuration(t *testing.T) {
	r := NewResolver(testNow, "+00:00")
	start, end, err := r.ResolveWindow("2026-02-09T14:00", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := time.Parse(time.RFC3339, start)
	en, _ := time.Parse(time.RFC3339, end)
	if en.Sub(st) != 60*time.Minute {
		t.Fatalf("default duration should be 60m, got %v", en.Sub(st))
	}
}

func TestResolveWindowInvalidStart(t *testing.T) {
	r := NewResolver(testNow, "+00:00")
	_, _, err := r.ResolveWindow("next full moon", "", 0)
	if !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestResolveWindowDateOnly(t *testing.T) {
	r := NewResolver(testNow, "+02:00")
	start, _, err := r.ResolveWindow("2026-03-01", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != "2026-03-01T00:00:00+02:00" {
		t.Fatalf("unexpected start: %s", start)
	}
}

func TestSystemContext(t *testing.T) {
	r := NewResolver(testNow, "+05:00")
	sc := r.SystemContext()
	if sc.Weekday != "Friday" {
		t.Fatalf("unexpected weekday: %s", sc.Weekday)
	}
	if sc.UTCOffset != "+05:00" {
		t.Fatalf("unexpected offset: %s", sc.UTCOffset)
	}
	if sc.CurrentTime != "2026-02-06T15:00:00+05:00" {
		t.Fatalf("unexpected current time: %s", sc.CurrentTime)
	}
}

func TestResolverFallsBackOnBadZone(t *testing.T) {
	r := NewResolver(testNow, "Not/AZone")
	if r.loc != time.Local {
		t.Fatal("bad zone should fall back to server local")
	}
}
