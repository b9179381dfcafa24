// Package agent runs the multi-turn tool-calling loop between the language
// model and the calendar backend.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/LexCal/LexCal/internal/calendar"
	"github.com/LexCal/LexCal/internal/conversation"
	"github.com/LexCal/LexCal/internal/outcome"
	"github.com/LexCal/LexCal/internal/policy"
	"github.com/LexCal/LexCal/internal/provider"
	"github.com/LexCal/LexCal/internal/repair"
	"github.com/LexCal/LexCal/internal/temporal"
	"github.com/LexCal/LexCal/internal/tenant"
	"github.com/LexCal/LexCal/internal/timeline"
	"github.com/LexCal/LexCal/internal/tools"
	"github.com/LexCal/LexCal/internal/trace"
)

// DefaultMaxRounds caps model consultations per request.
const DefaultMaxRounds = 5

// degradedResponse is returned when the round cap exhausts without the model
// producing a final text answer.
const degradedResponse = "I wasn't able to finish that request within the allowed number of steps. The actions taken so far are recorded above; please tell me how you'd like to continue."

// Options wires the loop's collaborators. Provider and BackendBase are
// required; everything else has a working default.
type Options struct {
	Provider provider.LLMProvider
	Policy   policy.Engine

	// BackendBase is the calendar backend base URL.
	BackendBase string
	HTTPClient  *http.Client
	Retry       calendar.RetryPolicy

	Timeline *timeline.Service
	Trace    *trace.Publisher

	SystemPrompt    string
	Model           string
	MaxTokens       int
	Temperature     float64
	MaxRounds       int
	KeepRecent      int
	MaxContentChars int

	// Clock supplies the reference instant for temporal resolution; nil
	// means time.Now. Tests pin it.
	Clock func() time.Time
}

// Request is one inbound conversational request.
type Request struct {
	Prompt  string
	History []conversation.Turn
	Tenant  tenant.Context
	TraceID string
}

// Response carries the final text plus the full turn sequence the caller
// should persist as the next request's history.
type Response struct {
	Text  string              `json:"response"`
	Turns []conversation.Turn `json:"turns"`
}

// Loop is the request processor. One Loop serves many concurrent requests;
// all per-request state lives in Process.
type Loop struct {
	opts Options
}

// NewLoop validates options and applies defaults.
func NewLoop(opts Options) (*Loop, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("agent: provider is required")
	}
	if opts.BackendBase == "" {
		return nil, fmt.Errorf("agent: backend base URL is required")
	}
	if opts.Policy == nil {
		opts.Policy = policy.NewDefaultEngine()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = calendar.DefaultRetryPolicy()
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Loop{opts: opts}, nil
}

// Process runs the loop for one request until the model answers in plain
// text or the round cap is reached. The error return covers infrastructure
// failures only (model unreachable); action failures stay in-band as tool
// results.
func (l *Loop) Process(ctx context.Context, req *Request) (*Response, error) {
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	log := slog.With("trace_id", traceID, "tenant_id", req.Tenant.TenantID)

	client := calendar.NewClient(l.opts.BackendBase, l.opts.HTTPClient, req.Tenant.TenantID, traceID, l.opts.Retry)
	registry := tools.NewRegistry()
	resolve := func() *temporal.Resolver {
		return temporal.NewResolver(l.opts.Clock(), req.Tenant.Timezone)
	}
	tools.RegisterCalendarTools(registry, client, resolve)

	history := conversation.RepairHistory(req.History)
	if tok := conversation.RecoverToken(history); tok != "" {
		client.InstallToken(tok)
	}
	locked := conversation.ExtractFacts(history)
	history = conversation.Sanitize(history, l.opts.KeepRecent, l.opts.MaxContentChars)

	turns := make([]conversation.Turn, 0, len(history)+2)
	turns = append(turns, conversation.Turn{
		Role:    conversation.RoleSystem,
		Content: buildSystemPrompt(l.opts.SystemPrompt, req.Tenant),
	})
	turns = append(turns, history...)
	turns = append(turns, conversation.Turn{Role: conversation.RoleUser, Content: req.Prompt})

	task := &timeline.Task{
		TaskID:    uuid.NewString(),
		TraceID:   traceID,
		TenantID:  req.Tenant.TenantID,
		Role:      req.Tenant.Role,
		ContentIn: req.Prompt,
	}
	if err := l.opts.Timeline.CreateTask(task); err != nil {
		log.Warn("timeline task create failed", "error", err)
	}

	defs := toolDefinitions(registry)
	var lastAction string
	var lastAssistant string

	finish := func(text string, rounds int, failure error) {
		task.ContentOut = text
		task.Rounds = rounds
		if failure != nil {
			task.ErrorText = failure.Error()
		}
		if err := l.opts.Timeline.CompleteTask(task); err != nil {
			log.Warn("timeline task complete failed", "error", err)
		}
	}

	for round := 1; round <= l.opts.MaxRounds; round++ {
		resolver := resolve()
		sys := resolver.SystemContext()

		msgs := spliceStatusNote(buildMessages(turns), provider.Message{
			Role:    conversation.RoleSystem,
			Content: statusMessage(sys, locked, lastAction),
		})

		started := time.Now()
		resp, err := l.opts.Provider.Chat(ctx, &provider.ChatRequest{
			Messages:    msgs,
			Tools:       defs,
			Model:       l.opts.Model,
			MaxTokens:   l.opts.MaxTokens,
			Temperature: l.opts.Temperature,
		})
		if err != nil {
			log.Error("model consult failed", "round", round, "error", err)
			finish("", round, err)
			return nil, fmt.Errorf("model consult: %w", err)
		}
		task.PromptTokens += resp.Usage.PromptTokens
		task.CompletionTokens += resp.Usage.CompletionTokens
		task.TotalTokens += resp.Usage.TotalTokens
		l.recordSpan(ctx, traceID, req.Tenant.TenantID, timeline.SpanLLM, "consult",
			fmt.Sprintf("round=%d finish=%s tool_calls=%d", round, resp.FinishReason, len(resp.ToolCalls)),
			time.Since(started))

		assistant := conversation.Turn{Role: conversation.RoleAssistant, Content: resp.Content}
		for _, tc := range resp.ToolCalls {
			id := tc.ID
			if id == "" {
				id = uuid.NewString()
			}
			assistant.Actions = append(assistant.Actions, conversation.ProposedAction{
				ID:   id,
				Name: tc.Name,
				Args: tc.Arguments,
			})
		}
		turns = append(turns, assistant)
		if resp.Content != "" {
			lastAssistant = resp.Content
		}

		if len(assistant.Actions) == 0 {
			log.Info("request completed", "rounds", round)
			finish(resp.Content, round, nil)
			return &Response{Text: resp.Content, Turns: turns[1:]}, nil
		}

		for _, action := range assistant.Actions {
			result := l.execute(ctx, req, resolver, registry, locked, action, traceID)
			turns = append(turns, conversation.Turn{
				Role:     conversation.RoleTool,
				Content:  result.JSON(),
				ActionID: action.ID,
			})
			lastAction = action.Name
			locked = lockFromArgs(locked, action.Args)
		}
	}

	text := lastAssistant
	if text == "" {
		text = degradedResponse
	}
	log.Warn("round cap reached", "rounds", l.opts.MaxRounds)
	finish(text, l.opts.MaxRounds, nil)
	return &Response{Text: text, Turns: turns[1:]}, nil
}

// execute gates, repairs and dispatches one proposed action. Every outcome
// is a structured result; the loop never sees an error from this path.
func (l *Loop) execute(ctx context.Context, req *Request, resolver *temporal.Resolver,
	registry *tools.Registry, locked conversation.Locked,
	action conversation.ProposedAction, traceID string) (result outcome.Result) {

	started := time.Now()
	defer func() {
		l.recordSpan(ctx, traceID, req.Tenant.TenantID, timeline.SpanTool, action.Name,
			result.Code(), time.Since(started))
	}()

	decision := l.opts.Policy.Evaluate(policy.Context{
		Role:    req.Tenant.Role,
		Action:  action.Name,
		Args:    action.Args,
		TraceID: traceID,
	})
	if !decision.Allow {
		slog.Info("action denied", "trace_id", traceID, "action", action.Name, "reason", decision.Reason)
		l.recordSpan(ctx, traceID, req.Tenant.TenantID, timeline.SpanPolicy, action.Name,
			decision.Reason, 0)
		return decision.Result()
	}

	args, failure := repair.Repair(action, locked, resolver.SystemContext(), req.Tenant.TenantID)
	if failure != nil {
		return failure
	}
	return registry.Execute(ctx, action.Name, args)
}

func (l *Loop) recordSpan(ctx context.Context, traceID, tenantID, spanType, title, detail string, dur time.Duration) {
	sp := &timeline.Span{
		SpanID:     uuid.NewString(),
		TraceID:    traceID,
		Type:       spanType,
		Title:      title,
		Content:    detail,
		StartedAt:  time.Now().Add(-dur),
		DurationMs: dur.Milliseconds(),
	}
	if err := l.opts.Timeline.AddSpan(sp); err != nil {
		slog.Warn("timeline span write failed", "trace_id", traceID, "error", err)
	}
	l.opts.Trace.PublishSpan(ctx, trace.SpanPayload{
		SpanID:     sp.SpanID,
		TraceID:    traceID,
		SpanType:   spanType,
		Title:      title,
		TenantID:   tenantID,
		Detail:     detail,
		DurationMs: sp.DurationMs,
	})
}

// lockFromArgs folds freshly proposed argument values into the locked set.
func lockFromArgs(locked conversation.Locked, args map[string]any) conversation.Locked {
	for _, field := range []string{conversation.FieldTitle, conversation.FieldStartTime, conversation.FieldEventID} {
		if s, ok := args[field].(string); ok {
			locked = locked.With(field, s)
		}
	}
	return locked
}

// buildMessages converts the persisted turn sequence into the provider's
// wire shape.
func buildMessages(turns []conversation.Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(turns)+1)
	for _, t := range turns {
		msg := provider.Message{Role: t.Role, Content: t.Content}
		for _, a := range t.Actions {
			msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
				ID:        a.ID,
				Name:      a.Name,
				Arguments: a.Args,
			})
		}
		msg.ToolCallID = t.ActionID
		msgs = append(msgs, msg)
	}
	return msgs
}

// spliceStatusNote inserts the per-round status note into the outbound
// message list. A system message between an assistant's tool calls and their
// results would break the pairing some providers enforce, so when the list
// ends in a call/result group the note goes in front of that group. Every
// round still sees the fresh clock and the locked-parameter summary.
func spliceStatusNote(msgs []provider.Message, note provider.Message) []provider.Message {
	idx := len(msgs)
	for idx > 0 && msgs[idx-1].Role == conversation.RoleTool {
		idx--
	}
	if idx < len(msgs) && idx > 0 && msgs[idx-1].Role == conversation.RoleAssistant {
		idx--
	}
	out := make([]provider.Message, 0, len(msgs)+1)
	out = append(out, msgs[:idx]...)
	out = append(out, note)
	out = append(out, msgs[idx:]...)
	return out
}

func toolDefinitions(registry *tools.Registry) []provider.ToolDefinition {
	list := registry.List()
	defs := make([]provider.ToolDefinition, 0, len(list))
	for _, t := range list {
		defs = append(defs, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
