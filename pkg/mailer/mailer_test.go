package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPicksTransport(t *testing.T) {
	assert.IsType(t, &DevMailer{}, New(config.EmailConfig{DevMode: true, MailerSendKey: "k"}))
	assert.IsType(t, &MailerSendClient{}, New(config.EmailConfig{MailerSendKey: "k", SMTPFrom: "a@b.co"}))
	assert.IsType(t, &SMTPMailer{}, New(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025}))
}

func TestMailerSendRequiresConfig(t *testing.T) {
	m := NewMailerSend("", "CleanBook", "")
	err := m.Send(context.Background(), Message{ToEmail: "x@y.co"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDevMailerRecords(t *testing.T) {
	d := NewDevMailer()
	require.NoError(t, d.Send(context.Background(), Message{ToEmail: "x@y.co", Subject: "Booked"}))
	require.Len(t, d.Sent(), 1)
	assert.Equal(t, "Booked", d.Sent()[0].Subject)
}

func TestBuildMIME(t *testing.T) {
	body := string(buildMIME("from@x.co", "to@y.co", Message{Subject: "Hi", Text: "plain", HTML: "<p>html</p>"}))
	assert.True(t, strings.HasPrefix(body, "From: from@x.co\r\n"))
	assert.Contains(t, body, "Subject: Hi\r\n")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "<p>html</p>")
	assert.True(t, strings.HasSuffix(body, "--mixed-boundary--\r\n"))
}

func TestSMTPRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPMailer("localhost", 1025, "from@x.co", "", "", false)
	assert.Error(t, s.Send(context.Background(), Message{ToEmail: "  "}))
}
