package email

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levishimwe/bookswap/internal/config"
)

func TestNewSMTPSenderFallsBackToLogging(t *testing.T) {
	cfg := &config.Config{SmtpHost: "", SmtpFromAddress: "noreply@example.com"}
	sender := NewSMTPSender(cfg)

	_, isLogging := sender.(*LoggingSender)
	assert.True(t, isLogging, "unconfigured SMTP should degrade to LoggingSender")

	// A degraded send succeeds so callers never fail on missing transport.
	err := sender.Send(context.Background(), []string{"someone@example.com"}, "Hello", []byte("body"))
	assert.NoError(t, err)
}

func TestNewSMTPSenderWithHost(t *testing.T) {
	cfg := &config.Config{
		SmtpHost:        "smtp.example.com",
		SmtpPort:        587,
		SmtpUsername:    "u",
		SmtpPassword:    "p",
		SmtpFromAddress: "noreply@example.com",
	}
	sender := NewSMTPSender(cfg)

	smtpSender, ok := sender.(*SMTPSender)
	require.True(t, ok)
	assert.Equal(t, "smtp.example.com:587", smtpSender.addr)
}

func TestBuildHTMLMessage(t *testing.T) {
	raw := BuildHTMLMessage("noreply@example.com", []string{"a@example.com", "b@example.com"}, "Test subject", "<p>Hi</p>")

	s := string(raw)
	assert.Contains(t, s, "From: noreply@example.com\r\n")
	assert.Contains(t, s, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, s, "Subject: Test subject\r\n")
	assert.Contains(t, s, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.Contains(t, s, "<p>Hi</p>")
	assert.Regexp(t, `Message-ID: <[0-9a-f-]{36}@example\.com>\r\n`, s)
}

func TestMessageIDDomain(t *testing.T) {
	assert.Equal(t, "example.com", messageIDDomain("noreply@example.com"))
	assert.Equal(t, "localhost", messageIDDomain("not-an-address"))
	assert.Equal(t, "localhost", messageIDDomain("dangling@"))
}

type failingSender struct{ err error }

func (f *failingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	return f.err
}

type okSender struct{ sent int }

func (o *okSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	o.sent++
	return nil
}

func TestCompositeEmailSenderAggregatesErrors(t *testing.T) {
	ok := &okSender{}
	failing := &failingSender{err: fmt.Errorf("smtp down")}
	composite := NewCompositeEmailSender(ok, failing)

	err := composite.Send(context.Background(), []string{"x@example.com"}, "s", []byte("m"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	// Working senders still ran.
	assert.Equal(t, 1, ok.sent)
}

func TestCompositeEmailSenderEmpty(t *testing.T) {
	composite := NewCompositeEmailSender()
	err := composite.Send(context.Background(), []string{"x@example.com"}, "s", []byte("m"))
	assert.Error(t, err)
}

func TestCompositeEmailSenderAddSender(t *testing.T) {
	composite := NewCompositeEmailSender()
	composite.AddSender(nil) // ignored
	ok := &okSender{}
	composite.AddSender(ok)

	err := composite.Send(context.Background(), []string{"x@example.com"}, "s", []byte("m"))
	assert.NoError(t, err)
	assert.Equal(t, 1, ok.sent)
}
