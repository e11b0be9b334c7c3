package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/digest"
	"github.com/kanflow/movedigest/internal/domain"
	"github.com/kanflow/movedigest/internal/email"
	"github.com/kanflow/movedigest/internal/repository"
)

// DispatcherHooks carries the metric callbacks injected by main.
// Using a struct keeps the constructor signature clean.
type DispatcherHooks struct {
	OnClaimed func(n int)
	OnSent    func()
	OnFailed  func()
	OnRun     func(d time.Duration)
	// OnPending receives the rows left after a run. Nil skips the count.
	OnPending func(n int)
}

// DigestDispatcher claims due pending emails and sends one digest per
// recipient. Delivery is at most once: claimed rows are deleted before any
// email goes out and a failed send is not retried.
type DigestDispatcher struct {
	repo        repository.PendingEmailRepository
	sender      email.Sender
	baseURL     string
	sendTimeout time.Duration
	logger      *zap.Logger
	hooks       DispatcherHooks
}

func NewDigestDispatcher(
	repo repository.PendingEmailRepository,
	sender email.Sender,
	baseURL string,
	logger *zap.Logger,
	hooks DispatcherHooks,
) *DigestDispatcher {
	if hooks.OnClaimed == nil {
		hooks.OnClaimed = func(int) {}
	}
	if hooks.OnSent == nil {
		hooks.OnSent = func() {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func() {}
	}
	if hooks.OnRun == nil {
		hooks.OnRun = func(time.Duration) {}
	}
	return &DigestDispatcher{repo: repo, sender: sender, baseURL: baseURL, logger: logger, hooks: hooks}
}

// WithSendTimeout bounds each digest send. Zero means no per-send limit.
func (d *DigestDispatcher) WithSendTimeout(timeout time.Duration) *DigestDispatcher {
	d.sendTimeout = timeout
	return d
}

// DispatchDueDigests claims every pending email created at or before now and
// sends the digests. Only a claim failure is returned as an error; send
// failures are logged and reflected in Sent < Recipients.
//
// Once rows are claimed they exist nowhere else, so the sends ignore
// cancellation of ctx; a dropped trigger request does not drop digests.
func (d *DigestDispatcher) DispatchDueDigests(ctx context.Context, now time.Time) (domain.DispatchResult, error) {
	start := time.Now()
	defer func() { d.hooks.OnRun(time.Since(start)) }()
	defer d.reportPending(ctx)

	claimed, err := d.repo.ClaimDueBefore(ctx, now)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("claim pending emails: %w", err)
	}
	if len(claimed) == 0 {
		return domain.DispatchResult{}, nil
	}
	d.hooks.OnClaimed(len(claimed))

	batch := digest.Group(claimed, d.baseURL)
	result := domain.DispatchResult{Recipients: batch.Len()}

	sendCtx := context.WithoutCancel(ctx)
	for _, r := range batch.Recipients() {
		if err := d.send(sendCtx, r); err != nil {
			d.hooks.OnFailed()
			d.logger.Error("failed to send card move digest",
				zap.String("email", r.Email),
				zap.String("recipient_user_id", r.UserID),
				zap.Int("movements", len(r.Movements)),
				zap.Error(err),
			)
			continue
		}
		result.Sent++
		d.hooks.OnSent()
	}

	d.logger.Info("card move digests dispatched",
		zap.Int("claimed", len(claimed)),
		zap.Int("duplicates", batch.Duplicates()),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
	)
	return result, nil
}

func (d *DigestDispatcher) send(ctx context.Context, r *digest.Recipient) error {
	data, err := digest.TemplateData(r.Movements)
	if err != nil {
		return err
	}
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}
	return d.sender.Send(ctx, r.Email, digest.Subject(r.Movements), domain.CardMoveDigestTemplate, data)
}

func (d *DigestDispatcher) reportPending(ctx context.Context) {
	if d.hooks.OnPending == nil {
		return
	}
	n, err := d.repo.CountPending(context.WithoutCancel(ctx))
	if err != nil {
		d.logger.Warn("count pending emails failed", zap.Error(err))
		return
	}
	d.hooks.OnPending(n)
}
