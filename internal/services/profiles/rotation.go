package profiles

import (
	"sync"

	"github.com/scrapeloop/sessiond/internal/interfaces"
)

// Rotation hands out profile indices FIFO from an available queue. When the
// available queue is exhausted it is refilled from the used queue (order
// preserved) and the used queue is emptied, restarting the same order.
// Every index is in exactly one of the two queues at any time.
type Rotation struct {
	mu        sync.Mutex
	available []int
	used      []int
}

// NewRotation creates a rotation over n profile indices.
func NewRotation(n int) *Rotation {
	available := make([]int, n)
	for i := range available {
		available[i] = i
	}
	return &Rotation{
		available: available,
		used:      make([]int, 0, n),
	}
}

// Fresh pops the head of the available queue, records it as used, and returns
// it. On exhaustion the used queue is swapped back in.
func (r *Rotation) Fresh() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.available) == 0 {
		if len(r.used) == 0 {
			return 0, interfaces.ErrNoProfiles
		}
		r.available = r.used
		r.used = make([]int, 0, len(r.available))
	}

	out := r.available[0]
	r.available = r.available[1:]
	r.used = append(r.used, out)
	return out, nil
}

// Counts returns the current sizes of the available and used queues.
func (r *Rotation) Counts() (available, used int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.available), len(r.used)
}
