package audit

import "sync"

// DefaultCapacity is the number of dispatches the trail keeps.
const DefaultCapacity = 200

// Trail is a bounded, thread-safe history of dispatches. When full, the
// oldest entry is dropped to make room for the new one.
type Trail struct {
	mu       sync.Mutex
	entries  []Entry
	head     int // next write position
	count    int
	capacity int

	evicted int64
}

// NewTrail creates a trail holding at most capacity entries.
func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Trail{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Record appends entry, evicting the oldest if the trail is full. The
// recipient slice is copied so later caller mutation cannot leak in.
func (t *Trail) Record(entry Entry) {
	entry = entry.clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == t.capacity {
		t.evicted++
	} else {
		t.count++
	}
	t.entries[t.head] = entry
	t.head = (t.head + 1) % t.capacity
}

// History returns every retained entry, oldest first.
func (t *Trail) History() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, t.count)
	tail := (t.head - t.count + t.capacity) % t.capacity
	for i := 0; i < t.count; i++ {
		out[i] = t.entries[(tail+i)%t.capacity].clone()
	}
	return out
}

// Recent returns up to n entries, newest first. n <= 0 means all.
func (t *Trail) Recent(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > t.count {
		n = t.count
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := (t.head - 1 - i + t.capacity) % t.capacity
		out[i] = t.entries[idx].clone()
	}
	return out
}

// Len returns the current number of entries.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Capacity returns the configured bound.
func (t *Trail) Capacity() int {
	return t.capacity
}

// Evicted returns how many entries have been dropped since creation.
func (t *Trail) Evicted() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evicted
}
