package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EmailRequest describes a single alert email.
type EmailRequest struct {
	To      string
	Subject string
	Body    string
}

// Service sends alert notifications. The alert engine and the notification
// dispatch job call it; a failed send is logged and retried by the
// notification queue rather than blocking the detector pipeline.
type Service interface {
	SendEmail(ctx context.Context, req EmailRequest) error
}

// LoggerService logs notification intent without delivering anything.
// Used as a safe default before SMTP credentials are configured, so a
// fresh deployment without mail credentials still runs without every
// alert evaluation logging a delivery failure.
type LoggerService struct {
	logger *slog.Logger
}

// NewLoggerService creates a logging-only notification service.
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerService{logger: logger}
}

// SendEmail logs the email request and reports success; there is no real
// delivery channel configured behind it.
func (s *LoggerService) SendEmail(ctx context.Context, req EmailRequest) error {
	if strings.TrimSpace(req.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	s.logger.InfoContext(ctx, "email notification (no SMTP configured, not delivered)", "to", req.To, "subject", req.Subject)
	return nil
}
