package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, subject, body string) error {
	return m.Called(ctx, subject, body).Error(0)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Raw(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

const ledgerJSON = `[{"tokenSymbol":"LINK","profit":"1.5"}]`

func TestDigest_SendMailsWholeLedger(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Raw", mock.Anything).Return([]byte(ledgerJSON), nil)
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, "Daily Trades Report",
		"Here is your daily trades report:\n\n"+ledgerJSON).Return(nil)

	d, err := NewDigest(mailer, ledger, time.Hour, logger.NewDiscard())
	require.NoError(t, err)

	require.NoError(t, d.Send(context.Background()))
	mailer.AssertExpectations(t)
}

func TestDigest_SendFailures(t *testing.T) {
	t.Run("ledger unreadable", func(t *testing.T) {
		ledger := &mockLedger{}
		ledger.On("Raw", mock.Anything).Return(nil, errors.New("disk"))
		mailer := &mockMailer{}

		d, err := NewDigest(mailer, ledger, time.Hour, logger.NewDiscard())
		require.NoError(t, err)

		assert.Error(t, d.Send(context.Background()))
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("smtp failure", func(t *testing.T) {
		ledger := &mockLedger{}
		ledger.On("Raw", mock.Anything).Return([]byte("[]"), nil)
		mailer := &mockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("auth"))

		d, err := NewDigest(mailer, ledger, time.Hour, logger.NewDiscard())
		require.NoError(t, err)

		err = d.Send(context.Background())
		assert.True(t, apperror.HasCode(err, apperror.CodeNotificationFailed))
	})
}

func TestDigest_StartSendsImmediatelyThenOnInterval(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Raw", mock.Anything).Return([]byte("[]"), nil)

	sends := make(chan struct{}, 10)
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { sends <- struct{}{} }).
		Return(nil)

	d, err := NewDigest(mailer, ledger, 20*time.Millisecond, logger.NewDiscard())
	require.NoError(t, err)

	d.Start(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-sends:
		case <-time.After(2 * time.Second):
			t.Fatalf("digest %d not sent", i+1)
		}
	}
	require.NoError(t, d.Stop())
}

func TestDigest_FailureDoesNotStopSchedule(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("Raw", mock.Anything).Return([]byte("[]"), nil)

	sends := make(chan struct{}, 10)
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { sends <- struct{}{} }).
		Return(errors.New("smtp down"))

	d, err := NewDigest(mailer, ledger, 10*time.Millisecond, logger.NewDiscard())
	require.NoError(t, err)
	d.Start(context.Background())
	defer d.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-sends:
		case <-time.After(2 * time.Second):
			t.Fatal("schedule stalled after failure")
		}
	}
}

func TestDigest_StopWithoutStart(t *testing.T) {
	d, err := NewDigest(&mockMailer{}, &mockLedger{}, 0, logger.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d.interval)
	assert.NoError(t, d.Stop())
}
