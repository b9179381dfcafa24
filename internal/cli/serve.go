package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LexCal/LexCal/internal/agent"
	"github.com/LexCal/LexCal/internal/calendar"
	"github.com/LexCal/LexCal/internal/config"
	"github.com/LexCal/LexCal/internal/conversation"
	"github.com/LexCal/LexCal/internal/provider"
	"github.com/LexCal/LexCal/internal/tenant"
	"github.com/LexCal/LexCal/internal/timeline"
	"github.com/LexCal/LexCal/internal/trace"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("⚖️  LexCal Server")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if cfg.Model.APIKey == "" {
		fmt.Println("Error: no model API key configured (set LEXCAL_MODEL_API_KEY or OPENAI_API_KEY)")
		os.Exit(1)
	}

	var tl *timeline.Service
	if cfg.Timeline.Enabled {
		tl, err = timeline.NewService(cfg.Timeline.DBPath)
		if err != nil {
			slog.Warn("timeline disabled", "error", err)
			tl = nil
		} else {
			defer tl.Close()
		}
	}

	var pub *trace.Publisher
	if cfg.Trace.Enabled {
		pub = trace.NewPublisher(cfg.Trace.Brokers, cfg.Trace.Topic, cfg.Trace.AgentID)
		defer pub.Close()
	}

	loop, err := agent.NewLoop(agent.Options{
		Provider:        provider.NewOpenAIProvider(cfg.Model.APIKey, cfg.Model.APIBase, cfg.Model.Name),
		BackendBase:     cfg.Backend.BaseURL,
		HTTPClient:      &http.Client{Timeout: cfg.BackendTimeout()},
		Retry:           retryPolicy(cfg),
		Timeline:        tl,
		Trace:           pub,
		SystemPrompt:    cfg.Prompt.SystemPrompt,
		Model:           cfg.Model.Name,
		MaxTokens:       cfg.Model.MaxTokens,
		Temperature:     cfg.Model.Temperature,
		MaxRounds:       cfg.Model.MaxRounds,
		KeepRecent:      cfg.History.KeepRecent,
		MaxContentChars: cfg.History.MaxContentChars,
	})
	if err != nil {
		fmt.Printf("Agent error: %v\n", err)
		os.Exit(1)
	}

	mux := newMux(loop, cfg)
	slog.Info("lexcal server listening", "addr", cfg.Server.Listen, "backend", cfg.Backend.BaseURL)
	if err := http.ListenAndServe(cfg.Server.Listen, mux); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

func retryPolicy(cfg *config.Config) calendar.RetryPolicy {
	p := calendar.DefaultRetryPolicy()
	if cfg.Backend.RetryAttempts > 0 {
		p.MaxAttempts = cfg.Backend.RetryAttempts
	}
	if cfg.Backend.RetryBaseMs > 0 {
		p.BaseDelay = time.Duration(cfg.Backend.RetryBaseMs) * time.Millisecond
	}
	if cfg.Backend.RetryMaxMs > 0 {
		p.MaxDelay = time.Duration(cfg.Backend.RetryMaxMs) * time.Millisecond
	}
	if cfg.Backend.RetryMult > 0 {
		p.Multiplier = cfg.Backend.RetryMult
	}
	return p
}

// chatProcessor is the loop surface the HTTP layer depends on.
type chatProcessor interface {
	Process(ctx context.Context, req *agent.Request) (*agent.Response, error)
}

type chatBody struct {
	Prompt  string              `json:"prompt"`
	History []conversation.Turn `json:"history"`
}

// newMux builds the HTTP API. Tenancy is mandatory on every conversational
// route: a request without X-Tenant-ID is rejected before any other work.
func newMux(proc chatProcessor, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ai/chat", func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFromRequest(w, r)
		if !ok {
			return
		}

		var body chatBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid JSON body"})
			return
		}
		if body.Prompt == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "prompt is required"})
			return
		}

		resp, err := proc.Process(r.Context(), &agent.Request{
			Prompt:  body.Prompt,
			History: body.History,
			Tenant:  tc,
			TraceID: r.Header.Get("X-Trace-ID"),
		})
		if err != nil {
			slog.Error("chat request failed", "tenant_id", tc.TenantID, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"detail": "model consultation failed"})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /ai/sync", func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFromRequest(w, r)
		if !ok {
			return
		}
		client := calendar.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.BackendTimeout()},
			tc.TenantID, uuid.NewString(), retryPolicy(cfg))
		res := client.SyncGoogle(r.Context())
		status := http.StatusOK
		if res.IsError() {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, res)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version})
	})

	return mux
}

// tenantFromRequest derives the tenancy context from headers. The tenant id
// is required; role and timezone degrade to safe defaults.
func tenantFromRequest(w http.ResponseWriter, r *http.Request) (tenant.Context, bool) {
	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "X-Tenant-ID header required"})
		return tenant.Context{}, false
	}
	tz := r.Header.Get("X-Timezone")
	if tz == "" {
		tz = "UTC"
	}
	return tenant.Context{
		TenantID: tenantID,
		Role:     tenant.NormalizeRole(r.Header.Get("X-User-Role")),
		Timezone: tz,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
