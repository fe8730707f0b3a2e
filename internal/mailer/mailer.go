// Package mailer renders markdown email templates and dispatches them
// through a pluggable transactional-email sender.
package mailer

import (
	"context"
	"errors"
)

// Email is a fully-prepared message ready for sending.
type Email struct {
	Subject string
	HTML    string
	Text    string
	From    string // Override default sender when set
	To      []string
}

// Sender dispatches a prepared email through a mail provider.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Config holds mailer configuration.
type Config struct {
	FallbackSubject string `env:"MAILER_FALLBACK_SUBJECT" envDefault:"Notification"`
	DefaultLayout   string `env:"MAILER_DEFAULT_LAYOUT" envDefault:"base.html"`
}

// Mailer provides template-based email sending.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	config   Config
}

// New creates a Mailer with the given sender and renderer.
func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, config: cfg}
}

// SendParams contains parameters for sending a templated email.
type SendParams struct {
	To       string
	Template string // Template filename, e.g. "verify_email.md"
	Data     any

	Subject string // Override template metadata subject
	Layout  string // Override default layout
}

// Send renders a template and dispatches the result.
// Subject resolution: params.Subject > template metadata > config fallback.
func (m *Mailer) Send(ctx context.Context, params SendParams) error {
	if params.To == "" {
		return ErrNoRecipient
	}

	layout := params.Layout
	if layout == "" {
		layout = m.config.DefaultLayout
	}

	result, err := m.renderer.Render(layout, params.Template, params.Data)
	if err != nil {
		return errors.Join(ErrRenderFailed, err)
	}

	subject := params.Subject
	if subject == "" {
		if s, ok := result.Metadata["Subject"].(string); ok {
			subject = s
		} else {
			subject = m.config.FallbackSubject
		}
	}

	email := &Email{
		To:      []string{params.To},
		Subject: subject,
		HTML:    result.HTML,
		Text:    result.Text,
	}

	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// SendRaw dispatches a pre-built email without template rendering.
// Used by the newsletter pipeline, whose body is assembled dynamically.
// Provider errors pass through unmodified inside the joined error.
func (m *Mailer) SendRaw(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.Subject == "" {
		return ErrNoSubject
	}
	if email.HTML == "" {
		return ErrNoContent
	}

	return m.sender.Send(ctx, email)
}

// RenderMarkdown converts an assembled markdown document into the final HTML
// email body using the configured layout. No side effects.
func (m *Mailer) RenderMarkdown(markdown string) (*RenderResult, error) {
	return m.renderer.RenderString(m.config.DefaultLayout, markdown, nil)
}
