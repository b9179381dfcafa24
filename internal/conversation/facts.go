package conversation

import (
	"regexp"
	"strings"
)

// Logical field names tracked in the locked parameter set.
const (
	FieldTitle     = "title"
	FieldStartTime = "start_time"
	FieldEventID   = "event_id"
)

// Placeholder tokens a model may emit instead of a real value. A locked
// field is never overwritten by one of these.
var placeholders = map[string]bool{
	"":        true,
	"unknown": true,
	"string":  true,
	"n/a":     true,
	"none":    true,
	"null":    true,
	"tbd":     true,
}

// IsPlaceholder reports whether a value is empty or a known filler token.
func IsPlaceholder(value string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(value))]
}

// Locked maps a logical field name to its most recently known value. Once a
// field is set it is never unset, and never replaced by a placeholder.
type Locked map[string]string

// With returns a copy of the set with the field updated. The receiver is
// never mutated; each repair/lock/dispatch step threads its own snapshot.
// Placeholder values are ignored outright.
func (l Locked) With(field, value string) Locked {
	if IsPlaceholder(value) {
		return l
	}
	out := make(Locked, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[field] = strings.TrimSpace(value)
	return out
}

// Get returns the locked value for a field, or "".
func (l Locked) Get(field string) string {
	return l[field]
}

// Best-effort free-text mention of a title, e.g. `the title is "Deposition"`
// or `subject: Client Review`. Deliberately narrow; structured action
// arguments always take precedence over this heuristic.
var titleMention = regexp.MustCompile(`(?i)\b(?:title|subject)\s*(?:is|:)\s*"?([^".,\n]+)"?`)

// Actions whose arguments are worth mining for locked parameters.
var factActions = map[string]bool{
	"schedule_event": true,
	"update_event":   true,
}

// ExtractFacts scans turns newest-to-oldest and builds the locked parameter
// set. The first (most recent) non-placeholder match for a field wins;
// older matches never overwrite it. Within one turn, proposed-action
// arguments are preferred over free-text pattern matches.
func ExtractFacts(turns []Turn) Locked {
	locked := Locked{}
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		for _, a := range t.Actions {
			if !factActions[a.Name] {
				continue
			}
			locked = lockIfAbsent(locked, FieldTitle, stringArg(a.Args, "title"))
			locked = lockIfAbsent(locked, FieldStartTime, stringArg(a.Args, "start_time"))
			locked = lockIfAbsent(locked, FieldEventID, stringArg(a.Args, "event_id"))
		}
		if t.Content != "" && (t.Role == RoleUser || t.Role == RoleAssistant) {
			if m := titleMention.FindStringSubmatch(t.Content); m != nil {
				locked = lockIfAbsent(locked, FieldTitle, m[1])
			}
		}
	}
	return locked
}

func lockIfAbsent(l Locked, field, value string) Locked {
	if _, present := l[field]; present {
		return l
	}
	return l.With(field, value)
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}
