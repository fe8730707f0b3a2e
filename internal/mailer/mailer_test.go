package mailer_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/briefly/internal/mailer"
)

type fakeSender struct {
	sent []*mailer.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, email *mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"welcome.md": &fstest.MapFile{
			Data: []byte("---\nSubject: Welcome aboard\n---\nHello **{{.Name}}**!"),
		},
		"layouts/base.html": &fstest.MapFile{
			Data: []byte("<html><body>{{.Content}}</body></html>"),
		},
	}
}

func newMailer(sender mailer.Sender) *mailer.Mailer {
	renderer := mailer.NewRenderer(testFS())
	return mailer.New(sender, renderer, mailer.Config{
		FallbackSubject: "Notification",
		DefaultLayout:   "base.html",
	})
}

func TestSendRendersTemplate(t *testing.T) {
	sender := &fakeSender{}
	m := newMailer(sender)

	err := m.Send(context.Background(), mailer.SendParams{
		To:       "user@example.com",
		Template: "welcome.md",
		Data:     map[string]string{"Name": "Ada"},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	email := sender.sent[0]
	assert.Equal(t, []string{"user@example.com"}, email.To)
	assert.Equal(t, "Welcome aboard", email.Subject)
	assert.Contains(t, email.HTML, "<strong>Ada</strong>")
	assert.Contains(t, email.HTML, "<html><body>")
	assert.Contains(t, email.Text, "**Ada**")
}

func TestSendRequiresRecipient(t *testing.T) {
	sender := &fakeSender{}
	m := newMailer(sender)

	err := m.Send(context.Background(), mailer.SendParams{Template: "welcome.md"})
	assert.ErrorIs(t, err, mailer.ErrNoRecipient)
	assert.Empty(t, sender.sent)
}

func TestSendMissingTemplate(t *testing.T) {
	sender := &fakeSender{}
	m := newMailer(sender)

	err := m.Send(context.Background(), mailer.SendParams{
		To:       "user@example.com",
		Template: "missing.md",
	})
	assert.ErrorIs(t, err, mailer.ErrRenderFailed)
	assert.Empty(t, sender.sent)
}

func TestSendRawValidation(t *testing.T) {
	sender := &fakeSender{}
	m := newMailer(sender)
	ctx := context.Background()

	err := m.SendRaw(ctx, &mailer.Email{Subject: "s", HTML: "<p>x</p>"})
	assert.ErrorIs(t, err, mailer.ErrNoRecipient)

	err = m.SendRaw(ctx, &mailer.Email{To: []string{"a@b.c"}, HTML: "<p>x</p>"})
	assert.ErrorIs(t, err, mailer.ErrNoSubject)

	err = m.SendRaw(ctx, &mailer.Email{To: []string{"a@b.c"}, Subject: "s"})
	assert.ErrorIs(t, err, mailer.ErrNoContent)

	err = m.SendRaw(ctx, &mailer.Email{To: []string{"a@b.c"}, Subject: "s", HTML: "<p>x</p>"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
}

func TestSendRawPassesProviderErrorThrough(t *testing.T) {
	providerErr := assert.AnError
	sender := &fakeSender{err: providerErr}
	m := newMailer(sender)

	err := m.SendRaw(context.Background(), &mailer.Email{
		To: []string{"a@b.c"}, Subject: "s", HTML: "<p>x</p>",
	})
	assert.ErrorIs(t, err, providerErr)
}

func TestRenderMarkdown(t *testing.T) {
	m := newMailer(&fakeSender{})

	result, err := m.RenderMarkdown("# Title\n\nbody text")
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "<h1>Title</h1>")
	assert.Contains(t, result.Text, "# Title")
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantSubject  any
		wantBody     string
		wantErr      error
	}{
		{
			name:        "frontmatter and body",
			content:     "---\nSubject: Hi\n---\nbody",
			wantSubject: "Hi",
			wantBody:    "body",
		},
		{
			name:     "no frontmatter",
			content:  "just a body",
			wantBody: "just a body",
		},
		{
			name:    "unclosed frontmatter",
			content: "---\nSubject: Hi\nbody",
			wantErr: mailer.ErrInvalidFrontmatter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := mailer.ParseTemplate([]byte(tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, tmpl.Body)
			if tt.wantSubject != nil {
				assert.Equal(t, tt.wantSubject, tmpl.Metadata["Subject"])
			}
		})
	}
}
