package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"attendance-ledger/backend/internal/platform/identity"
)

// MemoryRepository is an in-process reference table, typically loaded from a roster CSV at start.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryRepository returns a table holding entries; keys are normalized.
func NewMemoryRepository(entries map[string]string) *MemoryRepository {
	r := &MemoryRepository{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		r.entries[identity.Normalize(k)] = strings.TrimSpace(v)
	}
	return r
}

// Lookup returns the secondary identifier for identity.
func (r *MemoryRepository) Lookup(ctx context.Context, id string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[id]
	return v, ok, nil
}

// Len returns the number of entries.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Replace swaps the whole table, e.g. after reloading the roster.
func (r *MemoryRepository) Replace(entries map[string]string) {
	fresh := NewMemoryRepository(entries)
	r.mu.Lock()
	r.entries = fresh.entries
	r.mu.Unlock()
}

// ReadRosterCSV parses identity,secondary_id rows. A first row whose first cell is "identity" (any
// case) is treated as a header. Rows with an empty identity or secondary id are rejected.
func ReadRosterCSV(in io.Reader) (map[string]string, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	out := make(map[string]string)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", line, err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "identity") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("roster line %d: want identity,secondary_id", line)
		}
		id, secondary := identity.Normalize(rec[0]), strings.TrimSpace(rec[1])
		if id == "" || secondary == "" {
			return nil, fmt.Errorf("roster line %d: empty field", line)
		}
		out[id] = secondary
	}
}

// LoadRosterFile reads a roster CSV from path into a new MemoryRepository.
func LoadRosterFile(path string) (*MemoryRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := ReadRosterCSV(f)
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(entries), nil
}
