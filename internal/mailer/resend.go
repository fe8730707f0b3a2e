package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend email provider configuration.
type ResendConfig struct {
	APIKey      string `env:"RESEND_API_KEY,required"`
	SenderEmail string `env:"RESEND_FROM_EMAIL,required"`
	SenderName  string `env:"RESEND_FROM_NAME"`
}

// ResendSender implements Sender using the Resend API.
type ResendSender struct {
	client *resend.Client
	config ResendConfig
}

// NewResendSender creates a Resend-backed sender.
func NewResendSender(cfg ResendConfig) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

// Send implements Sender. Resend API errors are returned as-is to the
// caller, wrapped only with the provider name.
func (s *ResendSender) Send(ctx context.Context, email *Email) error {
	from := email.From
	if from == "" {
		if s.config.SenderName != "" {
			from = fmt.Sprintf("%s <%s>", s.config.SenderName, s.config.SenderEmail)
		} else {
			from = s.config.SenderEmail
		}
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
