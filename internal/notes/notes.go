// Package notes is the agent's persistent key-value scratchpad. The
// reasoning backend writes notes through ###NOTE blocks and reads the full
// snapshot back in every prompt, giving it memory that survives the bounded
// history window.
package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// NotesFile is the notes filename inside the working dir.
const NotesFile = "notes.yaml"

// Pair is one key-value note.
type Pair struct {
	Key   string
	Value string
}

// Store is the Notes Store contract.
type Store interface {
	// Upsert sets key to value, last write wins.
	Upsert(key, value string) error

	// Snapshot returns all notes sorted by key, so prompts built from the
	// same state are byte-identical.
	Snapshot() []Pair

	// Clear removes all notes. Only invoked on explicit session reset.
	Clear() error
}

// FileStore persists notes as a flat YAML mapping with atomic writes.
type FileStore struct {
	path  string
	notes map[string]string
}

// Open loads the notes file in dir, starting empty when none exists.
// With reset true any existing notes are discarded.
func Open(dir string, reset bool) (*FileStore, error) {
	s := &FileStore{
		path:  filepath.Join(dir, NotesFile),
		notes: map[string]string{},
	}

	if reset {
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading notes file %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &s.notes); err != nil {
		return nil, fmt.Errorf("parsing notes file %s: %w", s.path, err)
	}
	if s.notes == nil {
		s.notes = map[string]string{}
	}
	return s, nil
}

func (s *FileStore) Upsert(key, value string) error {
	s.notes[key] = value
	return s.save()
}

func (s *FileStore) Snapshot() []Pair {
	return snapshot(s.notes)
}

func (s *FileStore) Clear() error {
	s.notes = map[string]string{}
	return s.save()
}

func (s *FileStore) save() error {
	data, err := yaml.Marshal(s.notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating notes directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, NotesFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing notes: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing notes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing notes: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("writing notes: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	notes map[string]string
}

// NewMemStore creates an empty in-memory notes store.
func NewMemStore() *MemStore {
	return &MemStore{notes: map[string]string{}}
}

func (s *MemStore) Upsert(key, value string) error {
	s.notes[key] = value
	return nil
}

func (s *MemStore) Snapshot() []Pair {
	return snapshot(s.notes)
}

func (s *MemStore) Clear() error {
	s.notes = map[string]string{}
	return nil
}

func snapshot(m map[string]string) []Pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Value: m[k]})
	}
	return pairs
}
