package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/fd1az/dex-arbitrage-bot/internal/config"
)

func TestConfigFrom_DefaultsRecipientToSender(t *testing.T) {
	cfg := ConfigFrom(config.NotifyConfig{
		EmailUser: "bot@example.com",
		EmailPass: "secret",
		SMTPHost:  "smtp.example.com",
		SMTPPort:  465,
	})

	assert.Equal(t, "bot@example.com", cfg.From)
	assert.Equal(t, "bot@example.com", cfg.To)
	assert.Equal(t, 465, cfg.Port)
}

func TestNewSender_RequiresCredentials(t *testing.T) {
	_, err := NewSender(Config{Host: "smtp.example.com", Username: "bot@example.com"})
	assert.Error(t, err)
}

func TestSend_BuildsMessage(t *testing.T) {
	s, err := NewSender(Config{
		Host:     "smtp.example.com",
		Username: "bot@example.com",
		Password: "secret",
		To:       "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, defaultSMTPPort, s.cfg.Port)

	var got *mail.Msg
	s.dial = func(_ context.Context, msg *mail.Msg) error {
		got = msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "Daily Trades Report", "Here is your daily trades report:\n\n[]"))
	require.NotNil(t, got)

	rcpts, err := got.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, rcpts)
	assert.Equal(t, []string{"Daily Trades Report"}, got.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = got.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Here is your daily trades report:")
}

func TestSend_DialError(t *testing.T) {
	s, err := NewSender(Config{Host: "smtp.example.com", Username: "bot@example.com", Password: "secret"})
	require.NoError(t, err)

	boom := errors.New("connection refused")
	s.dial = func(context.Context, *mail.Msg) error { return boom }

	assert.ErrorIs(t, s.Send(context.Background(), "s", "b"), boom)
}

func TestSend_InvalidAddress(t *testing.T) {
	s, err := NewSender(Config{Host: "smtp.example.com", Username: "not an address", Password: "secret"})
	require.NoError(t, err)
	s.dial = func(context.Context, *mail.Msg) error { return nil }

	assert.Error(t, s.Send(context.Background(), "s", "b"))
}
