// Package mailer sends transactional email through SendGrid.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a single plain/HTML email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type transport func(ctx context.Context, msg *mail.SGMailV3) (status int, body string, err error)

// SendGrid delivers mail using the SendGrid v3 API.
type SendGrid struct {
	fromEmail string
	fromName  string
	send      transport
}

// New returns a SendGrid sender, or a LogSender when no API key is configured.
func New(cfg config.SendgridConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return &LogSender{logg: logg}
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	return &SendGrid{
		fromEmail: cfg.DefaultFrom,
		fromName:  cfg.FromName,
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("mailer: recipient is required")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	status, body, err := s.send(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}
	return nil
}

// LogSender records messages in the log instead of sending them.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	})
	s.logg.Info(ctx, "mailer.disabled message not sent")
	return nil
}
