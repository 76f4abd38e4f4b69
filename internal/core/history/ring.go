package history

import "sync"

// DefaultCapacity is how many recent outputs are kept for display
const DefaultCapacity = 10

// Ring is a fixed-capacity FIFO of output paths. When full, Add evicts the oldest entry.
type Ring struct {
	mu    sync.RWMutex
	buf   []string
	start int
	size  int
}

// NewRing creates a ring holding at most capacity entries
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]string, capacity)}
}

// Add appends path, evicting the oldest entry when the ring is full
func (r *Ring) Add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = path
		r.size++
		return
	}
	r.buf[r.start] = path
	r.start = (r.start + 1) % len(r.buf)
}

// Items returns the entries oldest first
func (r *Ring) Items() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]string, r.size)
	for i := 0; i < r.size; i++ {
		items[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return items
}

// Last returns the most recently added entry
func (r *Ring) Last() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return "", false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.buf)
}
