// Package conversation models the turn sequence exchanged with the model and
// mines it for previously supplied parameters.
package conversation

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ProposedAction is one action the model asked for: a name from the fixed
// action set plus untyped key/value arguments, validated per action before
// dispatch. The ID pairs it with its result turn.
type ProposedAction struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Turn is one message in the conversation. Turns are append-only; the loop
// never mutates earlier turns apart from the initial history-repair trim.
type Turn struct {
	Role    string           `json:"role"`
	Content string           `json:"content,omitempty"`
	Actions []ProposedAction `json:"actions,omitempty"`
	// ActionID correlates a tool turn with the proposed action it answers.
	ActionID string `json:"action_id,omitempty"`
}

// RepairHistory drops any trailing run of assistant turns whose proposed
// actions have no matching result turns. An action proposal without a
// result turn makes the next model consultation invalid, so an interrupted
// tail must be trimmed before the history is reused.
func RepairHistory(turns []Turn) []Turn {
	end := len(turns)
	for end > 0 {
		tail := turns[end-1]
		if tail.Role == RoleAssistant && len(tail.Actions) > 0 && !actionsResolved(turns[:end], tail) {
			end--
			continue
		}
		break
	}
	return turns[:end]
}

func actionsResolved(turns []Turn, assistant Turn) bool {
	resolved := make(map[string]bool)
	for _, t := range turns {
		if t.Role == RoleTool && t.ActionID != "" {
			resolved[t.ActionID] = true
		}
	}
	for _, a := range assistant.Actions {
		if !resolved[a.ID] {
			return false
		}
	}
	return true
}
