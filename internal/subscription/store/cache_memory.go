package store

import (
	"context"
	"sort"
	"sync"

	"railalert/internal/subscription/models"
)

// InMemoryCache mirrors the durable store as line -> recipient set. Each line
// has its own lock so readers of one line never wait on writers of another.
type InMemoryCache struct {
	lines sync.Map // models.LineCode -> *recipientSet
}

type recipientSet struct {
	mu      sync.RWMutex
	members map[models.Recipient]struct{}
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{}
}

func (c *InMemoryCache) set(line models.LineCode) *recipientSet {
	if v, ok := c.lines.Load(line); ok {
		return v.(*recipientSet)
	}
	v, _ := c.lines.LoadOrStore(line, &recipientSet{members: make(map[models.Recipient]struct{})})
	return v.(*recipientSet)
}

func (c *InMemoryCache) Add(_ context.Context, line models.LineCode, recipient models.Recipient) error {
	s := c.set(line)
	s.mu.Lock()
	s.members[recipient] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Remove(_ context.Context, line models.LineCode, recipient models.Recipient) error {
	v, ok := c.lines.Load(line)
	if !ok {
		return nil
	}
	s := v.(*recipientSet)
	s.mu.Lock()
	delete(s.members, recipient)
	s.mu.Unlock()
	return nil
}

// Replace overwrites the line's set with recipients.
func (c *InMemoryCache) Replace(_ context.Context, line models.LineCode, recipients []models.Recipient) error {
	members := make(map[models.Recipient]struct{}, len(recipients))
	for _, r := range recipients {
		members[r] = struct{}{}
	}
	s := c.set(line)
	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
	return nil
}

// Recipients returns a sorted copy of the line's set.
func (c *InMemoryCache) Recipients(_ context.Context, line models.LineCode) ([]models.Recipient, error) {
	v, ok := c.lines.Load(line)
	if !ok {
		return []models.Recipient{}, nil
	}
	return v.(*recipientSet).sorted(), nil
}

// Snapshot returns every non-empty line with a sorted copy of its set.
func (c *InMemoryCache) Snapshot(_ context.Context) (map[models.LineCode][]models.Recipient, error) {
	out := make(map[models.LineCode][]models.Recipient)
	c.lines.Range(func(k, v any) bool {
		if members := v.(*recipientSet).sorted(); len(members) > 0 {
			out[k.(models.LineCode)] = members
		}
		return true
	})
	return out, nil
}

func (s *recipientSet) sorted() []models.Recipient {
	s.mu.RLock()
	out := make([]models.Recipient, 0, len(s.members))
	for r := range s.members {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
