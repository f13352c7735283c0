package store

import (
	"context"
	"sort"
	"sync"

	"railalert/internal/subscription/models"
)

// InMemory is a durable-tier stand-in used in tests and when no database is
// configured. Insertion order is kept so listings are deterministic.
type InMemory struct {
	mu   sync.RWMutex
	seq  uint64
	subs map[models.Key]memoryRow
}

type memoryRow struct {
	sub models.Subscription
	seq uint64
}

func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[models.Key]memoryRow)}
}

// Add inserts the pair unless it already exists. Returns true when a row was created.
func (s *InMemory) Add(_ context.Context, sub models.Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.Key()]; ok {
		return false, nil
	}
	s.seq++
	s.subs[sub.Key()] = memoryRow{sub: sub, seq: s.seq}
	return true, nil
}

// Remove deletes the pair if present. Returns true when a row was deleted.
func (s *InMemory) Remove(_ context.Context, line models.LineCode, recipient models.Recipient) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.Key{Line: line, Recipient: recipient}
	if _, ok := s.subs[key]; !ok {
		return false, nil
	}
	delete(s.subs, key)
	return true, nil
}

func (s *InMemory) ListRecipients(_ context.Context, line models.LineCode) ([]models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]memoryRow, 0)
	for key, row := range s.subs {
		if key.Line == line {
			rows = append(rows, row)
		}
	}
	sortRows(rows)

	out := make([]models.Recipient, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.sub.Recipient)
	}
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context) (map[models.LineCode][]models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]memoryRow, 0, len(s.subs))
	for _, row := range s.subs {
		rows = append(rows, row)
	}
	sortRows(rows)

	out := make(map[models.LineCode][]models.Recipient)
	for _, row := range rows {
		out[row.sub.Line] = append(out[row.sub.Line], row.sub.Recipient)
	}
	return out, nil
}

// Count returns the number of stored pairs.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func sortRows(rows []memoryRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
}
