package job

import "sync"

// HostLocks serializes per-host work so a slow collection run on one host
// cannot overlap with the next scheduled tick for that same host. Ticks that
// arrive while a host is still locked are dropped rather than queued, so the
// scheduler never builds up a backlog behind a stuck host.
type HostLocks struct {
	mu    sync.Mutex
	busy  map[string]struct{}
}

// NewHostLocks returns an empty lock set.
func NewHostLocks() *HostLocks {
	return &HostLocks{busy: make(map[string]struct{})}
}

// TryAcquire returns true and marks host busy if it was free. Callers that
// receive false must skip the tick rather than block.
func (h *HostLocks) TryAcquire(host string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.busy[host]; ok {
		return false
	}
	h.busy[host] = struct{}{}
	return true
}

// Release frees a host previously acquired with TryAcquire.
func (h *HostLocks) Release(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.busy, host)
}
