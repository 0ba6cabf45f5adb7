package async

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/creamcroissant/monitord/internal/notifier"
)

// maxDispatchAttempts bounds how many times a single email is retried before
// it is dropped with a logged failure, so a permanently-unreachable mail
// relay cannot grow the queue without bound.
const maxDispatchAttempts = 6

// DispatchItem pairs an outbound email with the alert record it notifies
// about, so a failed send can be traced back and retried without losing
// that linkage. Attempts and NextAttemptAt track the exponential backoff
// schedule applied to failed sends.
type DispatchItem struct {
	AlertRecordID int64
	Email         notifier.EmailRequest
	Attempts      int
	NextAttemptAt time.Time
}

// newBackOff returns the exponential backoff policy applied between retries
// of a single notification: starts at 5s, doubles up to a 10 minute cap.
func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Minute
	b.MaxElapsedTime = 0
	return b
}

// NotificationQueue buffers outbound alert emails for background dispatch.
// Failed sends are requeued by the caller with a growing backoff delay
// rather than dropped on the first failure, matching the alert engine's
// "never block future alerts" delivery guarantee; after
// maxDispatchAttempts retries Requeue refuses the item and it is dropped.
type NotificationQueue struct {
	mu    sync.Mutex
	items []DispatchItem
}

// NewNotificationQueue returns an empty notification queue.
func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{items: make([]DispatchItem, 0)}
}

// Enqueue appends a pending dispatch item, ready for immediate dispatch.
func (q *NotificationQueue) Enqueue(item DispatchItem) {
	if q == nil || item.Email.To == "" {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Drain returns every item whose backoff delay has elapsed and removes them
// from the buffer; items still waiting out a retry delay are left in place.
func (q *NotificationQueue) Drain() []DispatchItem {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	due := make([]DispatchItem, 0, len(q.items))
	remaining := make([]DispatchItem, 0, len(q.items))
	for _, item := range q.items {
		if item.NextAttemptAt.IsZero() || !item.NextAttemptAt.After(now) {
			due = append(due, item)
		} else {
			remaining = append(remaining, item)
		}
	}
	q.items = remaining
	return due
}

// Pending reports the number of buffered items, due or not.
func (q *NotificationQueue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Requeue schedules item for another attempt after an exponentially growing
// delay. Reports false once maxDispatchAttempts is exceeded, signaling the
// caller should give up and log the drop instead of requeuing again.
func (q *NotificationQueue) Requeue(item DispatchItem) bool {
	if q == nil || item.Email.To == "" {
		return false
	}
	item.Attempts++
	if item.Attempts > maxDispatchAttempts {
		return false
	}

	b := newBackOff()
	var delay time.Duration
	for i := 0; i < item.Attempts; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop {
		delay = b.MaxInterval
	}
	item.NextAttemptAt = time.Now().Add(delay)

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	return true
}
