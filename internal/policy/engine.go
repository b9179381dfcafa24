// Package policy authorizes proposed actions before dispatch. The model's
// intent is untrusted input: every check runs even when the model claims a
// precondition was already satisfied.
package policy

import (
	"fmt"
	"time"

	"github.com/LexCal/LexCal/internal/outcome"
	"github.com/LexCal/LexCal/internal/tenant"
)

// Action classes, in increasing order of required privilege.
const (
	ClassRead    = "read"
	ClassCreate  = "create"
	ClassDestroy = "destroy"
)

var actionClasses = map[string]string{
	"list_events":        ClassRead,
	"get_event_by_id":    ClassRead,
	"initialize_session": ClassRead,
	"check_connection":   ClassRead,
	"system_status":      ClassRead,
	"schedule_event":     ClassCreate,
	"update_event":       ClassCreate,
	"delete_event":       ClassDestroy,
}

// ActionClass returns the privilege class for an action name. Unknown
// actions are treated as destructive so they always hit the strictest path.
func ActionClass(action string) string {
	if class, ok := actionClasses[action]; ok {
		return class
	}
	return ClassDestroy
}

// Context holds information about a pending action execution.
type Context struct {
	Role    string
	Action  string
	Args    map[string]any
	TraceID string
}

// Decision is the result of a policy evaluation. Rejections become the
// action's structured outcome, not request-level errors, so the model can
// ask the user for confirmation or explain the denial.
type Decision struct {
	Allow   bool
	Code    string
	Reason  string
	Message string
	Ts      time.Time
	TraceID string
}

// Result converts a rejection into the structured result fed back to the
// model as the action's outcome.
func (d Decision) Result() outcome.Result {
	return outcome.Fail(d.Code, d.Message).With("reason", d.Reason)
}

// Engine evaluates whether an action execution should proceed.
type Engine interface {
	Evaluate(ctx Context) Decision
}

// DefaultEngine enforces the role/confirmation rules:
// destroy requires the admin role plus an explicit confirmation flag,
// create is denied to the read-only role, read is open to every role.
type DefaultEngine struct{}

// NewDefaultEngine creates the standard policy engine.
func NewDefaultEngine() *DefaultEngine {
	return &DefaultEngine{}
}

// Evaluate checks role and confirmation requirements for one action.
func (e *DefaultEngine) Evaluate(ctx Context) Decision {
	d := Decision{Ts: time.Now(), TraceID: ctx.TraceID}

	switch ActionClass(ctx.Action) {
	case ClassDestroy:
		if ctx.Role != tenant.RoleAdmin {
			d.Code = outcome.CodeUnauthorized
			d.Reason = fmt.Sprintf("role_%s_cannot_delete", ctx.Role)
			d.Message = "Access Denied: Only administrators can delete events."
			return d
		}
		if !confirmed(ctx.Args) {
			d.Code = outcome.CodeConfirmationRequired
			d.Reason = "explicit_confirmation_missing"
			d.Message = "I need your explicit confirmation to delete this event. Should I proceed?"
			return d
		}
	case ClassCreate:
		if ctx.Role == tenant.RoleViewer {
			d.Code = outcome.CodeUnauthorized
			d.Reason = "role_viewer_is_read_only"
			d.Message = "Access Denied: Your role only permits viewing the calendar."
			return d
		}
	}

	d.Allow = true
	d.Reason = "allowed"
	return d
}

// confirmed accepts only an explicit boolean true; string "true" or any
// other truthy-looking value from the model does not count.
func confirmed(args map[string]any) bool {
	if args == nil {
		return false
	}
	v, ok := args["confirmed"].(bool)
	return ok && v
}
