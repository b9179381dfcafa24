package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LexCal/LexCal/internal/calendar"
	"github.com/LexCal/LexCal/internal/outcome"
	"github.com/LexCal/LexCal/internal/temporal"
)

// ResolverFunc returns the current round's temporal resolver. The loop
// rebuilds the resolver each round so its reference time stays fresh.
type ResolverFunc func() *temporal.Resolver

// RegisterCalendarTools wires the full calendar action set against one
// per-request backend client.
func RegisterCalendarTools(r *Registry, client *calendar.Client, resolve ResolverFunc) {
	r.Register(&ListEventsTool{client: client})
	r.Register(&GetEventTool{client: client})
	r.Register(&ScheduleEventTool{client: client, resolve: resolve})
	r.Register(&UpdateEventTool{client: client, resolve: resolve})
	r.Register(&DeleteEventTool{client: client})
	r.Register(&InitSessionTool{client: client})
	r.Register(&CheckConnectionTool{client: client})
	r.Register(&SystemStatusTool{client: client})
}

// ListEventsTool retrieves all events for the tenant.
type ListEventsTool struct {
	client *calendar.Client
}

func (t *ListEventsTool) Name() string { return "list_events" }
func (t *ListEventsTool) Description() string {
	return "Retrieve all calendar events for the current legal tenant."
}
func (t *ListEventsTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
}
func (t *ListEventsTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	return t.client.ListEvents(ctx)
}

// GetEventTool fetches one event by its id.
type GetEventTool struct {
	client *calendar.Client
}

func (t *GetEventTool) Name() string { return "get_event_by_id" }
func (t *GetEventTool) Description() string {
	return "Get detailed information about a specific legal event using its ID."
}
func (t *GetEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": map[string]any{"type": "string", "description": "The unique ID of the calendar event."},
		},
		"required": []string{"event_id"},
	}
}
func (t *GetEventTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	eventID := GetString(args, "event_id", "")
	if eventID == "" {
		return outcome.Fail(outcome.CodeValidationError, "Missing event_id.")
	}
	return t.client.GetEvent(ctx, eventID)
}

// ScheduleEventTool resolves the event window, checks for conflicts, and
// creates the event. On conflict it reports back instead of retrying; the
// next model consultation picks a new time.
type ScheduleEventTool struct {
	client  *calendar.Client
	resolve ResolverFunc
}

func (t *ScheduleEventTool) Name() string { return "schedule_event" }
func (t *ScheduleEventTool) Description() string {
	return "Create a new legal event (e.g., Deposition, Hearing) on the calendar."
}
func (t *ScheduleEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":            map[string]any{"type": "string", "description": "Title of the event (e.g., Deposition of John Doe)"},
			"start_time":       map[string]any{"type": "string", "description": "ISO 8601 start time"},
			"end_time":         map[string]any{"type": "string", "description": "ISO 8601 end time; omit to use duration"},
			"duration_minutes": map[string]any{"type": "integer", "description": "Event length when end_time is omitted"},
			"description":      map[string]any{"type": "string", "description": "Additional notes or case references"},
		},
		"required": []string{"title", "start_time"},
	}
}

func (t *ScheduleEventTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	start, end, res := resolveWindow(t.resolve(), args)
	if res != nil {
		return res
	}

	if conflict, _ := t.client.CheckConflict(ctx, start, end); conflict {
		return outcome.Fail(outcome.CodeConflict,
			"That time window overlaps an existing event. Propose a different time instead of retrying the same one.").
			With("start_time", start).With("end_time", end)
	}

	event := map[string]any{
		"title":      GetString(args, "title", ""),
		"start_time": start,
		"end_time":   end,
	}
	if desc := GetString(args, "description", ""); desc != "" {
		event["description"] = desc
	}

	created := t.client.CreateEvent(ctx, event)
	if created.IsError() {
		return created
	}
	return created.With("start_time", start).With("end_time", end)
}

// UpdateEventTool patches an existing event, resolving any supplied times.
type UpdateEventTool struct {
	client  *calendar.Client
	resolve ResolverFunc
}

func (t *UpdateEventTool) Name() string { return "update_event" }
func (t *UpdateEventTool) Description() string {
	return "Update the title, time, or notes of an existing calendar event."
}
func (t *UpdateEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id":         map[string]any{"type": "string", "description": "The ID of the event to update"},
			"title":            map[string]any{"type": "string"},
			"start_time":       map[string]any{"type": "string", "description": "ISO 8601 start time"},
			"end_time":         map[string]any{"type": "string", "description": "ISO 8601 end time"},
			"duration_minutes": map[string]any{"type": "integer"},
			"description":      map[string]any{"type": "string"},
		},
		"required": []string{"event_id"},
	}
}

func (t *UpdateEventTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	eventID := GetString(args, "event_id", "")
	if eventID == "" {
		return outcome.Fail(outcome.CodeValidationError, "Missing event_id.")
	}

	fields := map[string]any{}
	if title := GetString(args, "title", ""); title != "" {
		fields["title"] = title
	}
	if desc := GetString(args, "description", ""); desc != "" {
		fields["description"] = desc
	}
	switch {
	case GetString(args, "start_time", "") != "":
		start, end, res := resolveWindow(t.resolve(), args)
		if res != nil {
			return res
		}
		fields["start_time"] = start
		fields["end_time"] = end
	case GetString(args, "end_time", "") != "":
		// End moved without touching the start: resolve the instant alone.
		end, err := t.resolve().ResolveInstant(GetString(args, "end_time", ""))
		if err != nil {
			return outcome.Fail(outcome.CodeInvalidTimeFormat,
				fmt.Sprintf("Could not parse the requested time: %v. Use ISO 8601, e.g. 2026-02-09T14:00:00+01:00.", err))
		}
		fields["end_time"] = end
	case GetInt(args, "duration_minutes", 0) > 0:
		end, res := t.endFromExistingStart(ctx, eventID, GetInt(args, "duration_minutes", 0))
		if res != nil {
			return res
		}
		fields["end_time"] = end
	}
	if len(fields) == 0 {
		return outcome.Fail(outcome.CodeValidationError, "Nothing to update: no fields supplied.")
	}

	return t.client.UpdateEvent(ctx, eventID, fields)
}

// endFromExistingStart derives a new end time from the event's stored start
// plus the requested duration. Used when the model asks to change only the
// length of an event.
func (t *UpdateEventTool) endFromExistingStart(ctx context.Context, eventID string, durationMin int) (string, outcome.Result) {
	ev := t.client.GetEvent(ctx, eventID)
	if ev.IsError() {
		return "", ev
	}
	startRaw, _ := ev["start_time"].(string)
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return "", outcome.Fail(outcome.CodeValidationError,
			fmt.Sprintf("Cannot apply a duration: event %s has no usable start time.", eventID))
	}
	return start.Add(time.Duration(durationMin) * time.Minute).Format(time.RFC3339), nil
}

// DeleteEventTool removes an event. Authorization and confirmation are
// enforced by the policy gate before this handler ever runs.
type DeleteEventTool struct {
	client *calendar.Client
}

func (t *DeleteEventTool) Name() string { return "delete_event" }
func (t *DeleteEventTool) Description() string {
	return "Permanently remove an event from the calendar. Requires admin role and user confirmation."
}
func (t *DeleteEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id":  map[string]any{"type": "string", "description": "The ID of the event to delete"},
			"confirmed": map[string]any{"type": "boolean", "description": "Must be true if the user explicitly confirmed the deletion."},
		},
		"required": []string{"event_id", "confirmed"},
	}
}
func (t *DeleteEventTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	eventID := GetString(args, "event_id", "")
	if eventID == "" {
		return outcome.Fail(outcome.CodeValidationError, "Missing event_id.")
	}
	return t.client.DeleteEvent(ctx, eventID)
}

// InitSessionTool obtains a session token and installs it into the backend
// client for the remainder of the request.
type InitSessionTool struct {
	client *calendar.Client
}

func (t *InitSessionTool) Name() string { return "initialize_session" }
func (t *InitSessionTool) Description() string {
	return "Initialize an authenticated calendar session for the current tenant."
}
func (t *InitSessionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tenant_id": map[string]any{"type": "string", "description": "Tenant to authenticate as"},
		},
		"required": []string{},
	}
}
func (t *InitSessionTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	res := t.client.InitSession(ctx)
	if res.IsError() {
		return res
	}
	token, _ := res["token"].(string)
	if token == "" {
		return outcome.Fail(outcome.CodeValidationError, "Backend returned no session token.")
	}
	t.client.InstallToken(token)
	return res.With("session", "ready")
}

// CheckConnectionTool probes backend reachability.
type CheckConnectionTool struct {
	client *calendar.Client
}

func (t *CheckConnectionTool) Name() string { return "check_connection" }
func (t *CheckConnectionTool) Description() string {
	return "Check whether the calendar backend is reachable."
}
func (t *CheckConnectionTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
}
func (t *CheckConnectionTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	res := t.client.Status(ctx)
	if res.IsError() {
		return res
	}
	return outcome.OK(map[string]any{"connection": "ok", "session_ready": t.client.SessionReady()})
}

// SystemStatusTool returns the backend's own status payload.
type SystemStatusTool struct {
	client *calendar.Client
}

func (t *SystemStatusTool) Name() string { return "system_status" }
func (t *SystemStatusTool) Description() string {
	return "Report the calendar backend's system status."
}
func (t *SystemStatusTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
}
func (t *SystemStatusTool) Execute(ctx context.Context, args map[string]any) outcome.Result {
	return t.client.Status(ctx)
}

// resolveWindow runs temporal resolution over an action's time arguments
// and converts a parse failure into its structured result.
func resolveWindow(resolver *temporal.Resolver, args map[string]any) (string, string, outcome.Result) {
	start, end, err := resolver.ResolveWindow(
		GetString(args, "start_time", ""),
		GetString(args, "end_time", ""),
		GetInt(args, "duration_minutes", 0),
	)
	if err != nil {
		if errors.Is(err, temporal.ErrInvalidTime) {
			return "", "", outcome.Fail(outcome.CodeInvalidTimeFormat,
				fmt.Sprintf("Could not parse the requested time: %v. Use ISO 8601, e.g. 2026-02-09T14:00:00+01:00.", err))
		}
		return "", "", outcome.Fail(outcome.CodeInvalidTimeFormat, err.Error())
	}
	return start, end, nil
}
