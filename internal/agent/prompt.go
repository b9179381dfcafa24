package agent

import (
	"fmt"
	"strings"

	"github.com/LexCal/LexCal/internal/conversation"
	"github.com/LexCal/LexCal/internal/temporal"
	"github.com/LexCal/LexCal/internal/tenant"
)

const defaultSystemPrompt = `You are LexCal, a scheduling assistant for a law firm's calendar.

You manage appointments, depositions, hearings and meetings through the
provided calendar actions. Follow these rules:
- Always use the actions to read or change the calendar; never invent event data.
- When the user asks to schedule something, resolve the time first and check
  for conflicts before confirming.
- Deleting an event is destructive. Never call delete_event with confirmed set
  to true unless the user has explicitly agreed to the deletion in this
  conversation.
- If an action fails, explain the failure briefly and suggest what the user
  can do next.
- Keep answers short and factual.`

// buildSystemPrompt renders the system turn for one request. The tenant and
// role lines scope every model consultation; the base prompt is
// operator-configurable.
func buildSystemPrompt(base string, tc tenant.Context) string {
	if strings.TrimSpace(base) == "" {
		base = defaultSystemPrompt
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nTenant: ")
	b.WriteString(tc.TenantID)
	b.WriteString("\nCaller role: ")
	b.WriteString(tc.Role)
	if tc.Role == tenant.RoleViewer {
		b.WriteString(" (read-only: may not create, change or delete events)")
	}
	return b.String()
}

// statusMessage is the ephemeral per-round system note carrying the current
// wall clock and the parameters recovered so far. It is spliced into the
// outbound message list each round and never persisted into the turn
// sequence.
func statusMessage(sys temporal.SystemContext, locked conversation.Locked, lastAction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s (%s, UTC offset %s).", sys.CurrentTime, sys.Weekday, sys.UTCOffset)
	if lastAction != "" {
		fmt.Fprintf(&b, " Last action executed: %s.", lastAction)
	}
	var facts []string
	for _, field := range []string{conversation.FieldTitle, conversation.FieldStartTime, conversation.FieldEventID} {
		if v := locked.Get(field); v != "" {
			facts = append(facts, fmt.Sprintf("%s=%q", field, v))
		}
	}
	if len(facts) > 0 {
		fmt.Fprintf(&b, " Known parameters: %s.", strings.Join(facts, ", "))
	}
	return b.String()
}
