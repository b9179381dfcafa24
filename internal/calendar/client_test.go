package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LexCal/LexCal/internal/outcome"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
}

func TestRequestCarriesTenantAndTraceHeaders(t *testing.T) {
	var gotTenant, gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant-ID")
		gotTrace = r.Header.Get("X-Trace-ID")
		w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "firm-77", "trace-abc", fastRetry(1))
	res := c.ListEvents(context.Background())
	if res.IsError() {
		t.Fatalf("unexpected error: %v", res)
	}
	if gotTenant != "firm-77" || gotTrace != "trace-abc" {
		t.Fatalf("missing metadata headers: tenant=%q trace=%q", gotTenant, gotTrace)
	}
}

func TestBearerSentAfterTokenInstall(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(1))
	if c.SessionReady() {
		t.Fatal("session must not be ready before token install")
	}
	c.InstallToken("tok-123")
	if !c.SessionReady() {
		t.Fatal("session should be ready after install")
	}
	c.Status(context.Background())
	if auth != "Bearer tok-123" {
		t.Fatalf("bearer header not sent: %q", auth)
	}
}

func TestBackendUnavailableAfterRetryCap(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(3))
	res := c.ListEvents(context.Background())
	if res.Code() != outcome.CodeBackendUnavailable {
		t.Fatalf("expected backend_unavailable, got %s", res.Code())
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("retry cap 3 means exactly 3 calls, got %d", n)
	}
}

func TestFourOhFourNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such event"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(3))
	res := c.GetEvent(context.Background(), "missing")
	if res.Code() != outcome.CodeValidationError {
		t.Fatalf("expected validation_error, got %s", res.Code())
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestExpiredTokenTranslatesToReauth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(1))
	res := c.ListEvents(context.Background())
	if res.Code() != outcome.CodeReauthRequired {
		t.Fatalf("expected reauth_required, got %s", res.Code())
	}
	if url, _ := res["reauth_url"].(string); !strings.HasSuffix(url, "/auth/login") {
		t.Fatalf("missing reauth url: %v", res["reauth_url"])
	}
}

func TestCheckConflictEncodesOffsets(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{"conflict":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(1))
	conflict, checked := c.CheckConflict(context.Background(), "2026-02-09T14:00:00+05:00", "2026-02-09T15:00:00+05:00")
	if !checked || !conflict {
		t.Fatalf("expected conflict=true checked=true, got %v %v", conflict, checked)
	}
	if strings.Contains(rawQuery, "+") {
		t.Fatalf("offset '+' must be percent-encoded, got query %q", rawQuery)
	}
	if !strings.Contains(rawQuery, "%2B05%3A00") {
		t.Fatalf("expected encoded offset in query, got %q", rawQuery)
	}
}

func TestCheckConflictFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(1))
	conflict, checked := c.CheckConflict(context.Background(), "a", "b")
	if conflict || checked {
		t.Fatalf("probe failure must fail open: conflict=%v checked=%v", conflict, checked)
	}
}

func TestArrayPayloadWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"e1"},{"id":"e2"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), "t", "tr", fastRetry(1))
	res := c.ListEvents(context.Background())
	if res.IsError() {
		t.Fatalf("unexpected error: %v", res)
	}
	if count, _ := res["count"].(int); count != 2 {
		t.Fatalf("expected wrapped array with count 2, got %v", res["count"])
	}
}

func TestRetryDelayBounded(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}
	for i := 0; i < 4; i++ {
		if d := p.Delay(i); d > 2*time.Second {
			t.Fatalf("delay for attempt %d exceeds cap: %v", i, d)
		}
	}
}
