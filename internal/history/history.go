// Package history persists the append-only ledger of what the agent has
// done: the goal, session status, and one record per iteration. The ledger
// is the single source of truth for "what has already been tried" and is
// mirrored to a human-readable markdown file.
package history

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a session ledger.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Record is one iteration's entry in the ledger. Immutable once appended.
type Record struct {
	Iteration     int               `json:"iteration"`
	Timestamp     time.Time         `json:"timestamp"`
	Observation   string            `json:"observation"`
	Reasoning     string            `json:"reasoning"`
	Commands      []string          `json:"commands"`
	CommandsCount int               `json:"commands_count"`
	ExecutedCount int               `json:"executed_count"`
	AllSucceeded  bool              `json:"all_succeeded"`
	Notes         map[string]string `json:"notes,omitempty"`
	Result        string            `json:"result_summary"`
}

// Ledger is the full persisted action history for one session.
type Ledger struct {
	SessionID   string     `json:"session_id"`
	Goal        string     `json:"goal"`
	StartedAt   time.Time  `json:"started_at"`
	Status      Status     `json:"status"`
	Iterations  int        `json:"iterations"`
	Actions     []Record   `json:"actions"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store is the History Store contract. The file-backed implementation is the
// production store; tests substitute the in-memory one.
type Store interface {
	// Ledger returns the current ledger. Callers must treat it as read-only.
	Ledger() *Ledger

	// Append adds one iteration record and increments the iteration count.
	// The record's Iteration must be exactly one past the current count.
	Append(rec Record) error

	// MarkCompleted sets the status to completed and stamps the completion
	// time. No-op when already completed.
	MarkCompleted() error

	// RecentWindow returns the last n records in original order, fewer when
	// the history is shorter.
	RecentWindow(n int) []Record
}

// PersistenceError indicates the ledger could not be read or written. It is
// always fatal: the session must stop rather than silently continue from an
// empty or half-written state.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger persistence failed at %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// validateAppend enforces the ledger invariants shared by both stores.
func validateAppend(l *Ledger, rec Record) error {
	if rec.Iteration != l.Iterations+1 {
		return fmt.Errorf("iteration %d out of sequence: ledger has %d iterations", rec.Iteration, l.Iterations)
	}
	return nil
}

func recentWindow(l *Ledger, n int) []Record {
	if n <= 0 || len(l.Actions) == 0 {
		return nil
	}
	if n > len(l.Actions) {
		n = len(l.Actions)
	}
	out := make([]Record, n)
	copy(out, l.Actions[len(l.Actions)-n:])
	return out
}
