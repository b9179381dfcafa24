// Package timeline persists an audit trail of requests and their
// model/tool/policy spans. Writes are best-effort: an audit failure must
// never fail the request it describes.
package timeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Task statuses.
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Span types.
const (
	SpanLLM    = "LLM"
	SpanTool   = "TOOL"
	SpanPolicy = "POLICY"
)

// Task records one inbound request end to end.
type Task struct {
	TaskID           string
	TraceID          string
	TenantID         string
	Role             string
	Status           string
	ContentIn        string
	ContentOut       string
	ErrorText        string
	Rounds           int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Span records one model consultation or action execution inside a task.
type Span struct {
	SpanID     string
	TraceID    string
	Type       string
	Title      string
	Content    string
	Metadata   string
	StartedAt  time.Time
	DurationMs int64
}

// Service is the sqlite-backed audit store.
type Service struct {
	db *sql.DB
}

// NewService opens (or creates) the audit database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open timeline db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply timeline schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTask inserts a new task row in processing state.
func (s *Service) CreateTask(t *Task) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (task_id, trace_id, tenant_id, role, status, content_in)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.TaskID, t.TraceID, t.TenantID, t.Role, TaskStatusProcessing, t.ContentIn)
	return err
}

// CompleteTask finalizes a task with its outcome and usage counters.
func (s *Service) CompleteTask(t *Task) error {
	if s == nil {
		return nil
	}
	status := TaskStatusCompleted
	if t.ErrorText != "" {
		status = TaskStatusFailed
	}
	_, err := s.db.Exec(`
		UPDATE tasks
		SET status = ?, content_out = ?, error_text = ?, rounds = ?,
		    prompt_tokens = ?, completion_tokens = ?, total_tokens = ?,
		    updated_at = CURRENT_TIMESTAMP, completed_at = CURRENT_TIMESTAMP
		WHERE task_id = ?`,
		status, t.ContentOut, t.ErrorText, t.Rounds,
		t.PromptTokens, t.CompletionTokens, t.TotalTokens, t.TaskID)
	return err
}

// AddSpan appends one span record.
func (s *Service) AddSpan(sp *Span) error {
	if s == nil {
		return nil
	}
	if sp.StartedAt.IsZero() {
		sp.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO spans (span_id, trace_id, span_type, title, content, metadata, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.SpanID, sp.TraceID, sp.Type, sp.Title, sp.Content, sp.Metadata, sp.StartedAt, sp.DurationMs)
	return err
}

// GetTask loads one task by id, mainly for tests and diagnostics.
func (s *Service) GetTask(taskID string) (*Task, error) {
	if s == nil {
		return nil, fmt.Errorf("timeline disabled")
	}
	row := s.db.QueryRow(`
		SELECT task_id, trace_id, tenant_id, role, status, content_in,
		       COALESCE(content_out, ''), COALESCE(error_text, ''), rounds,
		       prompt_tokens, completion_tokens, total_tokens
		FROM tasks WHERE task_id = ?`, taskID)
	var t Task
	err := row.Scan(&t.TaskID, &t.TraceID, &t.TenantID, &t.Role, &t.Status, &t.ContentIn,
		&t.ContentOut, &t.ErrorText, &t.Rounds,
		&t.PromptTokens, &t.CompletionTokens, &t.TotalTokens)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountSpans returns the number of spans recorded for a trace.
func (s *Service) CountSpans(traceID string) (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM spans WHERE trace_id = ?`, traceID).Scan(&n)
	return n, err
}
