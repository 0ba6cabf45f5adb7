package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode selects the connection discipline used to reach the SMTP server.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeSTARTTLS Mode = "starttls"
	ModeSMTPS    Mode = "smtps"
)

// SMTPConfig configures the alert mailer.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	FromName string
	Mode     Mode
	Timeout  time.Duration
}

// SMTPService delivers alert emails over SMTP, picking the connection
// discipline (implicit TLS, STARTTLS, or unencrypted) from Mode.
type SMTPService struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewSMTPService builds a mailer from cfg.
func NewSMTPService(cfg SMTPConfig) *SMTPService {
	var auth smtp.Auth
	if cfg.User != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSTARTTLS
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPService{cfg: cfg, auth: auth}
}

// SendEmail delivers req using the configured connection discipline.
func (s *SMTPService) SendEmail(ctx context.Context, req EmailRequest) error {
	if strings.TrimSpace(req.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(s.cfg.Host) == "" {
		return fmt.Errorf("smtp host is required")
	}

	body := s.buildMessage(req)

	switch s.cfg.Mode {
	case ModeSMTPS:
		return s.sendSMTPS(ctx, req.To, body)
	case ModePlain:
		return s.sendPlain(ctx, req.To, body)
	default:
		return s.sendSTARTTLS(ctx, req.To, body)
	}
}

func (s *SMTPService) buildMessage(req EmailRequest) []byte {
	from := s.cfg.From
	if strings.TrimSpace(s.cfg.FromName) != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}
	lines := []string{
		fmt.Sprintf("From: %s", sanitizeHeader(from)),
		fmt.Sprintf("To: %s", sanitizeHeader(req.To)),
		fmt.Sprintf("Subject: %s", sanitizeHeader(req.Subject)),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), s.cfg.Host),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		req.Body,
	}
	return []byte(strings.Join(lines, "\r\n"))
}

func (s *SMTPService) addr() string {
	return fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
}

// sendSTARTTLS dials plaintext, issues STARTTLS, then authenticates and
// sends; a server that does not advertise STARTTLS is an error. This is the
// default for port 587 deployments.
func (s *SMTPService) sendSTARTTLS(ctx context.Context, to string, body []byte) error {
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fmt.Errorf("starttls: server does not advertise STARTTLS")
	}
	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	return s.deliver(client, to, body)
}

// sendSMTPS dials directly over implicit TLS, used for port 465.
func (s *SMTPService) sendSMTPS(ctx context.Context, to string, body []byte) error {
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	tlsConn := tls.Client(rawConn, &tls.Config{ServerName: s.cfg.Host})
	client, err := smtp.NewClient(tlsConn, s.cfg.Host)
	if err != nil {
		tlsConn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()
	return s.deliver(client, to, body)
}

// sendPlain uses no transport security, for internal/trusted networks only.
func (s *SMTPService) sendPlain(ctx context.Context, to string, body []byte) error {
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()
	return s.deliver(client, to, body)
}

func (s *SMTPService) deliver(client *smtp.Client, to string, body []byte) error {
	if s.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(s.auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return client.Quit()
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
