package async

import (
	"context"
	"fmt"

	"github.com/creamcroissant/monitord/internal/notifier"
)

// QueueNotifier implements notifier.Service by enqueueing requests for
// background delivery instead of sending inline from the alert engine.
type QueueNotifier struct {
	queue *NotificationQueue
}

// NewQueueNotifier wraps a notification queue to satisfy notifier.Service.
func NewQueueNotifier(queue *NotificationQueue) notifier.Service {
	return &QueueNotifier{queue: queue}
}

// SendEmail enqueues the email for asynchronous delivery. Callers that need
// retry linkage to a specific alert record should call Enqueue on the
// NotificationQueue directly with a DispatchItem instead of going through
// this adapter.
func (n *QueueNotifier) SendEmail(ctx context.Context, req notifier.EmailRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("notification queue unavailable")
	}
	n.queue.Enqueue(DispatchItem{Email: req})
	return nil
}
