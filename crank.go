package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/subscription"
)

// CrankReport summarizes one crank run.
type CrankReport struct {
	RunID       id.CrankRunID
	DueAt       uint64
	Processed   int
	Deactivated int
	Failed      int
	Elapsed     time.Duration
}

// RunCrank charges every subscription that is due at the current host time,
// up to the configured batch size, acting as the keeper address.
//
// A failure on one subscription never stops the run: it is counted and the
// crank moves on. The returned error is only set when the work list could
// not be built.
func (e *Engine) RunCrank(ctx context.Context) (*CrankReport, error) {
	start := time.Now()
	report := &CrankReport{
		RunID: id.NewCrankRunID(),
		DueAt: e.host.Now(ctx),
	}

	var due []*subscription.Subscription
	err := e.read(func() error {
		var err error
		due, err = e.listSubscriptions(ctx, SubscriptionFilter{
			ListOpts: subscription.ListOpts{Limit: e.crankBatchSize},
			DueAt:    report.DueAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	call := host.Call{Caller: e.keeper}
	for _, sub := range due {
		if ctx.Err() != nil {
			break
		}
		err := e.ProcessSubscriptionPayment(ctx, call, sub.ID)
		switch {
		case err == nil:
			report.Processed++
		case errors.Is(err, ErrInsufficientBalance):
			report.Deactivated++
		default:
			report.Failed++
		}
	}

	report.Elapsed = time.Since(start)
	e.plugins.EmitCrankCompleted(ctx, report.Processed, report.Deactivated, report.Failed, report.Elapsed)

	e.logger.Info("crank completed",
		"run_id", report.RunID.String(),
		"due_at", report.DueAt,
		"candidates", len(due),
		"processed", report.Processed,
		"deactivated", report.Deactivated,
		"failed", report.Failed,
		"elapsed", report.Elapsed,
	)

	return report, ctx.Err()
}

// scheduledCrank is the cron job body.
func (e *Engine) scheduledCrank() {
	if _, err := e.RunCrank(e.runCtx); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("scheduled crank failed", "error", err)
	}
}
