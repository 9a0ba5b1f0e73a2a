package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes the message to the log instead of delivering it.
// Development only: config validation refuses it in production.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.log.Info("email delivery disabled, logging message",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
