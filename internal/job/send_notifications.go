package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/async"
	"github.com/creamcroissant/monitord/internal/notifier"
)

// SendNotificationsJob drains the in-memory notification queue the alert
// engine enqueues into and dispatches each item through the real SMTP
// notifier, so a slow or unreachable mail server never stalls alert
// evaluation itself. A failed send is requeued with a growing exponential
// backoff delay rather than retried inline, and is dropped after
// maxDispatchAttempts rather than retried forever.
type SendNotificationsJob struct {
	queue  *async.NotificationQueue
	mailer notifier.Service
	logger *slog.Logger
}

// NewSendNotificationsJob builds a SendNotificationsJob.
func NewSendNotificationsJob(queue *async.NotificationQueue, mailer notifier.Service, logger *slog.Logger) *SendNotificationsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendNotificationsJob{queue: queue, mailer: mailer, logger: logger}
}

func (j *SendNotificationsJob) Name() string { return "send_notifications" }

func (j *SendNotificationsJob) Timeout() time.Duration { return 20 * time.Second }

func (j *SendNotificationsJob) Run(ctx context.Context) error {
	items := j.queue.Drain()
	for _, item := range items {
		if err := j.mailer.SendEmail(ctx, item.Email); err != nil {
			if j.queue.Requeue(item) {
				j.logger.ErrorContext(ctx, "notification send failed, will retry", "to", item.Email.To, "attempt", item.Attempts+1, "error", err)
			} else {
				j.logger.ErrorContext(ctx, "notification send failed, giving up", "to", item.Email.To, "attempts", item.Attempts+1, "error", err)
			}
			continue
		}
		j.logger.DebugContext(ctx, "notification sent", "to", item.Email.To)
	}
	return nil
}
