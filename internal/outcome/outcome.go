// Package outcome defines the structured results that flow back to the model
// as tool outcomes. Failures inside the agent loop are represented as values,
// never as raw errors, so the turn sequence stays well formed.
package outcome

import "encoding/json"

// Result codes. Every tool execution produces exactly one result carrying
// one of these codes.
const (
	CodeOK                   = "ok"
	CodeValidationError      = "validation_error"
	CodeUnauthorized         = "unauthorized"
	CodeConfirmationRequired = "confirmation_required"
	CodeConflict             = "conflict"
	CodeBackendUnavailable   = "backend_unavailable"
	CodeReauthRequired       = "reauth_required"
	CodeInvalidTimeFormat    = "invalid_time_format"
)

// Result is the structured outcome of one action execution.
type Result map[string]any

// OK builds a success result. The fields map may be nil.
func OK(fields map[string]any) Result {
	r := Result{"status": CodeOK}
	for k, v := range fields {
		if k == "status" {
			continue
		}
		r[k] = v
	}
	return r
}

// Fail builds an error result with the given code and user-facing message.
func Fail(code, message string) Result {
	return Result{"status": code, "error": message}
}

// Code returns the result's status code, defaulting to ok.
func (r Result) Code() string {
	if s, ok := r["status"].(string); ok && s != "" {
		return s
	}
	return CodeOK
}

// IsError reports whether the result carries a non-ok code.
func (r Result) IsError() bool {
	return r.Code() != CodeOK
}

// Message returns the user-facing error text, if any.
func (r Result) Message() string {
	if s, ok := r["error"].(string); ok {
		return s
	}
	return ""
}

// With returns a copy of the result with one extra field set.
func (r Result) With(key string, value any) Result {
	out := make(Result, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// JSON renders the result for embedding in a tool turn. Marshal failures
// degrade to a minimal error payload rather than propagating.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"status":"validation_error","error":"unencodable tool result"}`
	}
	return string(data)
}
