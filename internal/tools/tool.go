// Package tools provides the action framework and the calendar action
// handlers the model may invoke.
package tools

import (
	"context"
	"fmt"

	"github.com/LexCal/LexCal/internal/outcome"
)

// Tool is the interface all calendar actions implement. Execute always
// returns a structured result, never an error: an action proposal without a
// matching result turn would corrupt the next model consultation.
type Tool interface {
	// Name returns the action identifier used in function calls.
	Name() string
	// Description returns a human-readable description for the model.
	Description() string
	// Parameters returns the JSON Schema for the action's arguments.
	Parameters() map[string]any
	// Execute runs the action with repaired arguments.
	Execute(ctx context.Context, args map[string]any) outcome.Result
}

// Registry manages action registration and execution.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new action registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds an action to the registry.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns an action by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered actions in registration order, so the schema
// sent to the model is stable across rounds.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Execute runs an action by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) outcome.Result {
	tool, ok := r.tools[name]
	if !ok {
		return outcome.Fail(outcome.CodeValidationError, fmt.Sprintf("Action not found: %s", name))
	}
	return tool.Execute(ctx, args)
}

// GetString extracts a string argument with a default value.
func GetString(args map[string]any, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int argument with a default value.
func GetInt(args map[string]any, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

// GetBool extracts a bool argument with a default value.
func GetBool(args map[string]any, key string, defaultVal bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
