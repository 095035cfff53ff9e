package history

import (
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and dry runs. It enforces the
// same invariants as FileStore without touching the filesystem.
type MemStore struct {
	ledger *Ledger
}

// NewMemStore creates an empty in-memory ledger for the goal.
func NewMemStore(goal string) *MemStore {
	return &MemStore{
		ledger: &Ledger{
			SessionID: uuid.NewString(),
			Goal:      goal,
			StartedAt: time.Now().UTC(),
			Status:    StatusInProgress,
		},
	}
}

func (s *MemStore) Ledger() *Ledger { return s.ledger }

func (s *MemStore) Append(rec Record) error {
	if err := validateAppend(s.ledger, rec); err != nil {
		return err
	}
	s.ledger.Actions = append(s.ledger.Actions, rec)
	s.ledger.Iterations = len(s.ledger.Actions)
	return nil
}

func (s *MemStore) MarkCompleted() error {
	if s.ledger.Status == StatusCompleted {
		return nil
	}
	now := time.Now().UTC()
	s.ledger.Status = StatusCompleted
	s.ledger.CompletedAt = &now
	return nil
}

func (s *MemStore) RecentWindow(n int) []Record {
	return recentWindow(s.ledger, n)
}
