package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// LedgerFile is the structured ledger filename inside the working dir.
	LedgerFile = "action_history.json"
	// MirrorFile is the human-readable markdown mirror of the ledger.
	MirrorFile = "action_history.md"
)

// FileStore persists the ledger as JSON with a markdown mirror. Writes go
// through a temp-file-then-rename so a crash mid-write never leaves a
// corrupt ledger behind.
type FileStore struct {
	dir    string
	ledger *Ledger
}

// Load opens the ledger in dir. With reset true, or when no ledger exists
// yet, a fresh ledger is created for the goal. Otherwise the existing ledger
// is loaded, schema-validated first so corruption surfaces as a
// PersistenceError instead of a silent restart, and its goal is updated to
// the supplied one when they differ (continuation of a prior session).
func Load(dir, goal string, reset bool) (*FileStore, error) {
	s := &FileStore{dir: dir}
	path := s.ledgerPath()

	if !reset {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			ledger, loadErr := decodeLedger(data)
			if loadErr != nil {
				return nil, &PersistenceError{Path: path, Err: loadErr}
			}
			s.ledger = ledger
			if goal != "" && ledger.Goal != goal {
				ledger.Goal = goal
				if saveErr := s.save(); saveErr != nil {
					return nil, saveErr
				}
			}
			return s, nil
		case errors.Is(err, os.ErrNotExist):
			// fall through to fresh init
		default:
			return nil, &PersistenceError{Path: path, Err: err}
		}
	}

	s.ledger = &Ledger{
		SessionID: uuid.NewString(),
		Goal:      goal,
		StartedAt: time.Now().UTC(),
		Status:    StatusInProgress,
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Ledger returns the in-memory ledger.
func (s *FileStore) Ledger() *Ledger { return s.ledger }

// Append adds one record and persists the updated ledger atomically.
func (s *FileStore) Append(rec Record) error {
	if err := validateAppend(s.ledger, rec); err != nil {
		return err
	}

	s.ledger.Actions = append(s.ledger.Actions, rec)
	s.ledger.Iterations = len(s.ledger.Actions)

	if err := s.save(); err != nil {
		// Roll back the in-memory state so a retry sees a consistent ledger.
		s.ledger.Actions = s.ledger.Actions[:len(s.ledger.Actions)-1]
		s.ledger.Iterations = len(s.ledger.Actions)
		return err
	}
	return nil
}

// MarkCompleted stamps the ledger completed. Idempotent.
func (s *FileStore) MarkCompleted() error {
	if s.ledger.Status == StatusCompleted {
		return nil
	}
	now := time.Now().UTC()
	s.ledger.Status = StatusCompleted
	s.ledger.CompletedAt = &now
	return s.save()
}

// RecentWindow returns the last n records in original order.
func (s *FileStore) RecentWindow(n int) []Record {
	return recentWindow(s.ledger, n)
}

func (s *FileStore) ledgerPath() string { return filepath.Join(s.dir, LedgerFile) }
func (s *FileStore) mirrorPath() string { return filepath.Join(s.dir, MirrorFile) }

// save writes both the JSON ledger and the markdown mirror atomically.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.ledger, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.ledgerPath(), Err: err}
	}
	if err := writeAtomic(s.ledgerPath(), data); err != nil {
		return &PersistenceError{Path: s.ledgerPath(), Err: err}
	}
	if err := writeAtomic(s.mirrorPath(), []byte(renderMirror(s.ledger))); err != nil {
		return &PersistenceError{Path: s.mirrorPath(), Err: err}
	}
	return nil
}

// decodeLedger validates raw ledger JSON against the embedded schema before
// decoding, so load failures carry a precise diagnosis.
func decodeLedger(data []byte) (*Ledger, error) {
	if errs := validateLedgerBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("ledger does not match schema: %s", strings.Join(errs, "; "))
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("decoding ledger: %w", err)
	}
	if ledger.Iterations != len(ledger.Actions) {
		return nil, fmt.Errorf("ledger inconsistent: iterations=%d but %d actions recorded", ledger.Iterations, len(ledger.Actions))
	}
	return &ledger, nil
}

// writeAtomic writes data to path via a temp file and rename in the same
// directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// renderMirror produces the markdown view of the ledger.
func renderMirror(l *Ledger) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Action History\n")
	fmt.Fprintf(&b, "Goal: %s\n", l.Goal)
	fmt.Fprintf(&b, "Session: %s\n", l.SessionID)
	fmt.Fprintf(&b, "Started: %s\n", l.StartedAt.Format(time.RFC3339))
	switch l.Status {
	case StatusCompleted:
		fmt.Fprintf(&b, "Status: Completed\n")
	default:
		fmt.Fprintf(&b, "Status: In Progress\n")
	}
	b.WriteString("\n## Actions\n")

	for _, rec := range l.Actions {
		fmt.Fprintf(&b, "\n### Iteration %d (%s)\n", rec.Iteration, rec.Timestamp.Format("15:04:05"))
		fmt.Fprintf(&b, "**Observation:** %s\n", rec.Observation)
		fmt.Fprintf(&b, "**Reasoning:** %s\n", rec.Reasoning)
		fmt.Fprintf(&b, "**Commands (%d):**\n", len(rec.Commands))
		for i, cmd := range rec.Commands {
			status := "NOT EXECUTED"
			if i < rec.ExecutedCount {
				if rec.AllSucceeded || i < rec.ExecutedCount-1 {
					status = "OK"
				} else {
					status = "FAIL"
				}
			}
			fmt.Fprintf(&b, "  %d. `%s` [%s]\n", i+1, cmd, status)
		}
		if len(rec.Notes) > 0 {
			fmt.Fprintf(&b, "**Notes:** %d recorded\n", len(rec.Notes))
		}
		fmt.Fprintf(&b, "**Result:** %s\n", rec.Result)
	}

	if l.Status == StatusCompleted && l.CompletedAt != nil {
		fmt.Fprintf(&b, "\n## Goal Achieved at %s\n", l.CompletedAt.Format(time.RFC3339))
	}

	return b.String()
}
