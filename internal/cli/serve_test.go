package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LexCal/LexCal/internal/agent"
	"github.com/LexCal/LexCal/internal/config"
	"github.com/LexCal/LexCal/internal/conversation"
	"github.com/LexCal/LexCal/internal/tenant"
)

type fakeProcessor struct {
	lastReq *agent.Request
	resp    *agent.Response
	err     error
}

func (f *fakeProcessor) Process(_ context.Context, req *agent.Request) (*agent.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testMux(t *testing.T, proc chatProcessor, backendURL string) *http.ServeMux {
	t.Helper()
	cfg := config.DefaultConfig()
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	return newMux(proc, cfg)
}

func TestChatRequiresTenantHeader(t *testing.T) {
	mux := testMux(t, &fakeProcessor{}, "")

	req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "X-Tenant-ID") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestChatRequiresPrompt(t *testing.T) {
	mux := testMux(t, &fakeProcessor{}, "")

	req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{}`))
	req.Header.Set("X-Tenant-ID", "tenant-a")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatDerivesTenantContext(t *testing.T) {
	proc := &fakeProcessor{resp: &agent.Response{
		Text:  "done",
		Turns: []conversation.Turn{{Role: conversation.RoleUser, Content: "hi"}},
	}}
	mux := testMux(t, proc, "")

	req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("X-Tenant-ID", "tenant-a")
	req.Header.Set("X-User-Role", "ADMIN")
	req.Header.Set("X-Timezone", "+05:00")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if proc.lastReq.Tenant.TenantID != "tenant-a" {
		t.Fatalf("tenant = %q", proc.lastReq.Tenant.TenantID)
	}
	if proc.lastReq.Tenant.Role != tenant.RoleAdmin {
		t.Fatalf("role = %q, want normalized admin", proc.lastReq.Tenant.Role)
	}
	if proc.lastReq.Tenant.Timezone != "+05:00" {
		t.Fatalf("timezone = %q", proc.lastReq.Tenant.Timezone)
	}

	var out struct {
		Response string              `json:"response"`
		Turns    []conversation.Turn `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Response != "done" || len(out.Turns) != 1 {
		t.Fatalf("response = %+v", out)
	}
}

func TestChatUnknownRoleBecomesViewer(t *testing.T) {
	proc := &fakeProcessor{resp: &agent.Response{Text: "ok"}}
	mux := testMux(t, proc, "")

	req := httptest.NewRequest(http.MethodPost, "/ai/chat", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("X-Tenant-ID", "tenant-a")
	req.Header.Set("X-User-Role", "superuser")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if proc.lastReq.Tenant.Role != tenant.RoleViewer {
		t.Fatalf("role = %q, want viewer", proc.lastReq.Tenant.Role)
	}
}

func TestSyncProxiesToBackend(t *testing.T) {
	var gotTenant string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/events/sync-google" {
			t.Errorf("backend got %s %s", r.Method, r.URL.Path)
		}
		gotTenant = r.Header.Get("X-Tenant-ID")
		json.NewEncoder(w).Encode(map[string]any{"synced": 4})
	}))
	defer backend.Close()

	mux := testMux(t, &fakeProcessor{}, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/ai/sync", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotTenant != "tenant-a" {
		t.Fatalf("backend tenant header = %q", gotTenant)
	}
	if !strings.Contains(rec.Body.String(), `"synced":4`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	mux := testMux(t, &fakeProcessor{}, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
