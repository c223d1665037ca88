package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"neuralflow/internal/notify"
)

func TestMessages(t *testing.T) {
	c := notify.Confirmation("a@x.io")
	assert.Equal(t, "a@x.io", c.To)
	assert.Equal(t, "Welcome to NeuralFlow AI Waitlist!", c.Subject())

	o := notify.OwnerAlert("", "b@x.io", "pricing?")
	assert.Equal(t, notify.DefaultOwnerEmail, o.To)
	assert.Equal(t, "b@x.io sent a message: pricing?", o.Body())
}

func TestLogNotifier_LogsAfterDelay(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := notify.NewLogNotifier(20*time.Millisecond, zap.New(core))

	start := time.Now()
	require.NoError(t, n.Send(context.Background(), notify.Confirmation("a@x.io")))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	entries := logs.FilterMessage("email sent").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "CONFIRMATION", fields["kind"])
	assert.Equal(t, "a@x.io", fields["to"])
}

func TestLogNotifier_Cancelled(t *testing.T) {
	n := notify.NewLogNotifier(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, notify.Confirmation("a@x.io")), context.Canceled)
}

func TestLogNotifier_NoRecipient(t *testing.T) {
	assert.Error(t, notify.NewLogNotifier(0, nil).Send(context.Background(), notify.Notification{Kind: notify.KindConfirmation}))
}

func TestDispatch_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &notify.Recorder{Err: errors.New("smtp down")}

	<-notify.Dispatch(context.Background(), rec, notify.Confirmation("a@x.io"), zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("notification failed").Len())
	assert.Empty(t, rec.Sent())
}

func TestDispatch_Delivers(t *testing.T) {
	rec := &notify.Recorder{}
	<-notify.Dispatch(context.Background(), rec, notify.OwnerAlert("owner@x.io", "b@x.io", "hi"), nil)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindOwnerAlert, sent[0].Kind)
	assert.Equal(t, "owner@x.io", sent[0].To)
}
