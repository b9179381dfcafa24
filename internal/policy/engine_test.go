package policy

import (
	"testing"

	"github.com/LexCal/LexCal/internal/outcome"
	"github.com/LexCal/LexCal/internal/tenant"
)

func TestViewerDeleteDeniedEvenWhenConfirmed(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{
		Role:   tenant.RoleViewer,
		Action: "delete_event",
		Args:   map[string]any{"event_id": "e1", "confirmed": true},
	})
	if d.Allow {
		t.Fatal("viewer must never delete")
	}
	if d.Code != outcome.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", d.Code)
	}
}

func TestAdminDeleteWithoutConfirmation(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{
		Role:   tenant.RoleAdmin,
		Action: "delete_event",
		Args:   map[string]any{"event_id": "e1"},
	})
	if d.Allow {
		t.Fatal("unconfirmed delete must be rejected")
	}
	if d.Code != outcome.CodeConfirmationRequired {
		t.Fatalf("expected confirmation_required, got %s", d.Code)
	}
}

func TestConfirmationRequiredForEveryRole(t *testing.T) {
	eng := NewDefaultEngine()
	for _, role := range []string{tenant.RoleAdmin, tenant.RoleStaff, tenant.RoleViewer} {
		d := eng.Evaluate(Context{Role: role, Action: "delete_event", Args: map[string]any{"event_id": "e1"}})
		if d.Allow {
			t.Fatalf("role %s: unconfirmed delete must be rejected", role)
		}
	}
}

func TestStringTrueDoesNotCountAsConfirmation(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{
		Role:   tenant.RoleAdmin,
		Action: "delete_event",
		Args:   map[string]any{"event_id": "e1", "confirmed": "true"},
	})
	if d.Allow {
		t.Fatal("confirmation must be an explicit boolean true")
	}
	if d.Code != outcome.CodeConfirmationRequired {
		t.Fatalf("expected confirmation_required, got %s", d.Code)
	}
}

func TestAdminConfirmedDeleteAllowed(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{
		Role:   tenant.RoleAdmin,
		Action: "delete_event",
		Args:   map[string]any{"event_id": "e1", "confirmed": true},
	})
	if !d.Allow {
		t.Fatalf("confirmed admin delete should pass, got %s/%s", d.Code, d.Reason)
	}
}

func TestViewerCannotSchedule(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{Role: tenant.RoleViewer, Action: "schedule_event"})
	if d.Allow {
		t.Fatal("viewer is read-only")
	}
	if d.Code != outcome.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", d.Code)
	}
}

func TestStaffCanScheduleAndEveryoneCanRead(t *testing.T) {
	eng := NewDefaultEngine()
	if d := eng.Evaluate(Context{Role: tenant.RoleStaff, Action: "schedule_event"}); !d.Allow {
		t.Fatalf("staff should create, got %s", d.Reason)
	}
	for _, role := range []string{tenant.RoleAdmin, tenant.RoleStaff, tenant.RoleViewer} {
		if d := eng.Evaluate(Context{Role: role, Action: "list_events"}); !d.Allow {
			t.Fatalf("role %s should read, got %s", role, d.Reason)
		}
	}
}

func TestUnknownActionTreatedAsDestructive(t *testing.T) {
	eng := NewDefaultEngine()
	d := eng.Evaluate(Context{Role: tenant.RoleStaff, Action: "drop_tenant"})
	if d.Allow {
		t.Fatal("unknown actions must hit the strictest path")
	}
}
