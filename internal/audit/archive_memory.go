package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryArchive keeps durable records in process. Used when no database is
// configured and in tests.
type InMemoryArchive struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{}
}

func (a *InMemoryArchive) Append(_ context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Message = truncate(rec.Message, MaxMessageLength)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// ListSince returns records created at or after since, newest first.
func (a *InMemoryArchive) ListSince(_ context.Context, since time.Time) ([]Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range a.records {
		if !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
