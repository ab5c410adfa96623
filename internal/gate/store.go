package gate

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// RecordStore persists the gate Record as JSON under the project's state
// directory.
type RecordStore struct {
	path string
}

// NewRecordStore returns a store rooted at <root>/.codegenome/state/gate_state.json.
func NewRecordStore(root string) *RecordStore {
	return &RecordStore{path: filepath.Join(root, ".codegenome", "state", "gate_state.json")}
}

func (s *RecordStore) Path() string { return s.path }

// Load reads the persisted record. A missing file yields a zero record.
// A corrupt file also yields a zero record, but loudly: silently resetting
// the streak would defeat the gate.
func (s *RecordStore) Load() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("gate state at %s is corrupt (%v); starting from a clean record", s.path, err)
		return Record{}
	}
	if rec.ConsecutiveFailures < 0 {
		log.Printf("gate state at %s has a negative streak; starting from a clean record", s.path)
		return Record{}
	}
	return rec
}

// Save writes the record atomically: a crash mid-write must never leave a
// truncated state file behind.
func (s *RecordStore) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode gate state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write gate state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit gate state: %w", err)
	}
	return nil
}
