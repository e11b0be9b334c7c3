package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/domain"
)

// Dispatcher is the part of service.DigestDispatcher the scheduler drives.
type Dispatcher interface {
	DispatchDueDigests(ctx context.Context, now time.Time) (domain.DispatchResult, error)
}

// DigestScheduler runs the digest dispatcher on a fixed interval inside the
// process, as an alternative to the external cron trigger. Both may run at
// once: the claim step keeps them from sending the same row twice.
type DigestScheduler struct {
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewDigestScheduler(dispatcher Dispatcher, interval time.Duration, logger *zap.Logger) *DigestScheduler {
	return &DigestScheduler{
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		logger:     logger,
	}
}

// Run ticks every interval and dispatches due digests.
// Stops cleanly when ctx is cancelled.
func (s *DigestScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("digest scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("digest scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *DigestScheduler) tick(ctx context.Context) {
	res, err := s.dispatcher.DispatchDueDigests(ctx, s.now())
	if err != nil {
		s.logger.Error("digest dispatch error", zap.Error(err))
		return
	}
	if res.Recipients > 0 {
		s.logger.Info("digest dispatch finished",
			zap.Int("sent", res.Sent), zap.Int("recipients", res.Recipients))
	}
}
