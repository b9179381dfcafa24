// Package repair intercepts proposed actions before dispatch: it fills
// missing or placeholder fields from the locked parameter set, normalizes
// field-name synonyms, injects system context, and rejects malformed
// argument sets so nothing unchecked reaches a backend call.
package repair

import (
	"fmt"
	"strings"

	"github.com/LexCal/LexCal/internal/conversation"
	"github.com/LexCal/LexCal/internal/outcome"
	"github.com/LexCal/LexCal/internal/temporal"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindNumber
)

type fieldSpec struct {
	name string
	kind fieldKind
}

// actionSpec is the typed shape of one action's arguments. Free-form model
// output is validated against it at this boundary.
type actionSpec struct {
	required      []fieldSpec
	optional      []fieldSpec
	timeSensitive bool
	titleRepair   bool
}

var actionSpecs = map[string]actionSpec{
	"list_events":     {},
	"get_event_by_id": {required: []fieldSpec{{"event_id", kindString}}},
	"schedule_event": {
		required: []fieldSpec{{"title", kindString}, {"start_time", kindString}},
		optional: []fieldSpec{
			{"end_time", kindString}, {"duration_minutes", kindNumber}, {"description", kindString},
		},
		timeSensitive: true,
		titleRepair:   true,
	},
	"update_event": {
		required: []fieldSpec{{"event_id", kindString}},
		optional: []fieldSpec{
			{"title", kindString}, {"start_time", kindString}, {"end_time", kindString},
			{"duration_minutes", kindNumber}, {"description", kindString},
		},
		timeSensitive: true,
		titleRepair:   true,
	},
	"delete_event": {
		required: []fieldSpec{{"event_id", kindString}},
		optional: []fieldSpec{{"confirmed", kindBool}},
	},
	"initialize_session": {optional: []fieldSpec{{"tenant_id", kindString}}},
	"check_connection":   {},
	"system_status":      {},
}

// Field-name synonyms the model tends to emit; the superseded key is removed.
var synonyms = map[string]string{
	"summary":  "title",
	"subject":  "title",
	"start":    "start_time",
	"end":      "end_time",
	"duration": "duration_minutes",
	"id":       "event_id",
}

// Repair returns an augmented copy of the action's arguments, or a
// validation result when the action is malformed. The input map is never
// mutated.
func Repair(action conversation.ProposedAction, locked conversation.Locked, sys temporal.SystemContext, tenantID string) (map[string]any, outcome.Result) {
	spec, known := actionSpecs[action.Name]
	if !known {
		return nil, outcome.Fail(outcome.CodeValidationError,
			fmt.Sprintf("Unknown action %q.", action.Name))
	}

	args := make(map[string]any, len(action.Args)+2)
	for k, v := range action.Args {
		args[k] = v
	}

	for from, to := range synonyms {
		v, ok := args[from]
		if !ok {
			continue
		}
		if _, exists := args[to]; !exists {
			args[to] = v
		}
		delete(args, from)
	}

	if spec.titleRepair {
		repairTitle(args, locked)
	}

	// The caller's declared tenant outranks whatever the model proposed.
	if action.Name == "initialize_session" && tenantID != "" {
		args["tenant_id"] = tenantID
	}

	if res := validate(action.Name, spec, args); res != nil {
		return nil, res
	}

	if spec.timeSensitive {
		args["system_context"] = sys.Map()
	}

	return args, nil
}

// repairTitle replaces an absent, empty, or placeholder title with the
// locked one. A fresh non-placeholder model value always wins.
func repairTitle(args map[string]any, locked conversation.Locked) {
	current, _ := args["title"].(string)
	if !conversation.IsPlaceholder(current) {
		return
	}
	if lockedTitle := locked.Get(conversation.FieldTitle); lockedTitle != "" {
		args["title"] = lockedTitle
	}
}

func validate(name string, spec actionSpec, args map[string]any) outcome.Result {
	for _, f := range spec.required {
		v, ok := args[f.name]
		if !ok {
			return outcome.Fail(outcome.CodeValidationError,
				fmt.Sprintf("Action %s is missing required argument %q.", name, f.name))
		}
		if !kindMatches(f.kind, v) {
			return outcome.Fail(outcome.CodeValidationError,
				fmt.Sprintf("Action %s argument %q has the wrong type.", name, f.name))
		}
		if f.kind == kindString {
			if s, _ := v.(string); strings.TrimSpace(s) == "" {
				return outcome.Fail(outcome.CodeValidationError,
					fmt.Sprintf("Action %s is missing required argument %q.", name, f.name))
			}
		}
	}
	for _, f := range spec.optional {
		v, ok := args[f.name]
		if !ok || v == nil {
			continue
		}
		if !kindMatches(f.kind, v) {
			return outcome.Fail(outcome.CodeValidationError,
				fmt.Sprintf("Action %s argument %q has the wrong type.", name, f.name))
		}
	}
	return nil
}

func kindMatches(kind fieldKind, v any) bool {
	switch kind {
	case kindString:
		_, ok := v.(string)
		return ok
	case kindBool:
		_, ok := v.(bool)
		return ok
	case kindNumber:
		switch v.(type) {
		case int, int64, float64:
			return true
		}
		return false
	}
	return false
}

// DurationMinutes extracts the duration argument, tolerating the numeric
// types JSON decoding produces. Zero means unspecified.
func DurationMinutes(args map[string]any) int {
	switch n := args["duration_minutes"].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
