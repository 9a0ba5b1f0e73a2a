// Package notify delivers OTP codes to users without blocking the request that issued them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const Subject = "Your OTP for Sign Up"

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// EmailSender is implemented by smtp.Mailer, sns.Publisher and LogSender.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Dispatcher sends OTP mail in the background. Failures are logged, never returned.
// Close waits for in-flight sends so a graceful shutdown does not drop codes.
type Dispatcher struct {
	sender   EmailSender
	validity time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender EmailSender, validity time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, validity: validity, log: log}
}

// Dispatch schedules delivery of code to email and returns immediately.
// After Close it logs and drops the message.
func (d *Dispatcher) Dispatch(email, code string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("otp dispatcher closed, dropping message", zap.String("email", email))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.sender.SendEmail(ctx, email, Subject, Body(code, d.validity)); err != nil {
			d.log.Error("send otp email", zap.String("email", email), zap.Error(err))
			return
		}
		d.log.Debug("otp email sent", zap.String("email", email))
	}()
}

// Close stops accepting messages and waits for pending sends or ctx expiry.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain otp dispatcher: %w", ctx.Err())
	}
}

// Body renders the plain-text OTP email.
func Body(code string, validity time.Duration) string {
	return fmt.Sprintf("Your OTP is %s. It is valid for %d minutes.", code, int(validity.Minutes()))
}
