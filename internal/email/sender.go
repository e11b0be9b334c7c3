// Package email is the outbound email capability used by the digest
// dispatcher: one Send per recipient, keyed by template id and data.
package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/ratelimiter"
)

// Sender abstracts delivery of one templated email to one address.
// Implementations must be safe for sequential use from a single goroutine;
// the dispatcher never sends concurrently.
type Sender interface {
	Send(ctx context.Context, to, subject, templateID string, data map[string]string) error
}

// LogSender logs every email instead of delivering it. Used when no
// transport is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, templateID string, data map[string]string) error {
	s.logger.Info("email (log transport)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("template", templateID),
		zap.Int("data_bytes", len(data["movements"])),
	)
	return nil
}

type rateLimitedSender struct {
	next    Sender
	limiter *ratelimiter.SendLimiter
}

// RateLimited wraps next so each Send first waits on limiter.
func RateLimited(next Sender, limiter *ratelimiter.SendLimiter) Sender {
	return &rateLimitedSender{next: next, limiter: limiter}
}

func (s *rateLimitedSender) Send(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.Send(ctx, to, subject, templateID, data)
}

// compile-time checks
var (
	_ Sender = (*LogSender)(nil)
	_ Sender = (*rateLimitedSender)(nil)
)
