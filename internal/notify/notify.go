// Package notify delivers the e-mails triggered by new leads. Delivery is
// simulated: messages are logged after a configurable latency.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindConfirmation Kind = "CONFIRMATION"
	KindOwnerAlert   Kind = "OWNER_ALERT"
)

const (
	DefaultOwnerEmail = "admin@neuralflow.ai"
	DefaultDelay      = time.Second
)

// Notification is one outbound message. To is the recipient; Email and
// Message describe the lead that triggered it.
type Notification struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// Subject and Body render the message text for n.Kind.
func (n Notification) Subject() string {
	switch n.Kind {
	case KindConfirmation:
		return "Welcome to NeuralFlow AI Waitlist!"
	case KindOwnerAlert:
		return "New Contact Submission"
	}
	return string(n.Kind)
}

func (n Notification) Body() string {
	switch n.Kind {
	case KindConfirmation:
		return "Your spot is reserved. Share your link to move up the queue."
	case KindOwnerAlert:
		return fmt.Sprintf("%s sent a message: %s", n.Email, n.Message)
	}
	return ""
}

// Confirmation is sent to a new signup.
func Confirmation(email string) Notification {
	return Notification{Kind: KindConfirmation, To: email, Email: email}
}

// OwnerAlert is sent to owner when a contact form is submitted.
func OwnerAlert(owner, email, message string) Notification {
	if owner == "" {
		owner = DefaultOwnerEmail
	}
	return Notification{Kind: KindOwnerAlert, To: owner, Email: email, Message: message}
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// ─────────────────────────────────────────────────────────────
// LogNotifier
// ─────────────────────────────────────────────────────────────

// LogNotifier waits Delay and then logs the message. It stands in for a
// mail provider.
type LogNotifier struct {
	Delay time.Duration
	log   *zap.Logger
}

func NewLogNotifier(delay time.Duration, log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if delay < 0 {
		delay = 0
	}
	return &LogNotifier{Delay: delay, log: log.Named("notify")}
}

func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	if n.To == "" {
		return fmt.Errorf("notification %s: no recipient", n.Kind)
	}
	if l.Delay > 0 {
		t := time.NewTimer(l.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.log.Info("email sent",
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.To),
		zap.String("subject", n.Subject()),
		zap.String("body", n.Body()),
	)
	return nil
}

// Dispatch sends n in the background. Failures are logged, never returned.
// The returned channel is closed once the attempt finishes.
func Dispatch(ctx context.Context, nt Notifier, n Notification, log *zap.Logger) <-chan struct{} {
	if log == nil {
		log = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := nt.Send(ctx, n); err != nil {
			log.Warn("notification failed",
				zap.String("kind", string(n.Kind)),
				zap.String("to", n.To),
				zap.Error(err),
			)
		}
	}()
	return done
}

// ─────────────────────────────────────────────────────────────
// Recorder
// ─────────────────────────────────────────────────────────────

// Recorder keeps every notification it is asked to send.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (r *Recorder) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
