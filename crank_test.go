package escrow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// recorder is a plugin that records every hook it receives.
type recorder struct {
	mu          sync.Mutex
	names       []string
	deactivated []uint64
	failedOps   []string
	cranks      int
	inits       int
	shutdowns   int
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

func (r *recorder) OnInit(context.Context, any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	return nil
}

func (r *recorder) OnShutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns++
	return nil
}

func (r *recorder) OnSubscriptionCreated(_ context.Context, e *event.SubscriptionCreated) error {
	return r.record(e.EventName())
}

func (r *recorder) OnPaymentProcessed(_ context.Context, e *event.PaymentProcessed) error {
	return r.record(e.EventName())
}

func (r *recorder) OnProviderEarnings(_ context.Context, e *event.ProviderEarnings) error {
	return r.record(e.EventName())
}

// A failing hook must not affect the committed call.
func (r *recorder) OnEscrowDeposit(_ context.Context, e *event.EscrowDeposit) error {
	_ = r.record(e.EventName())
	return errors.New("recorder: deposit hook failed")
}

func (r *recorder) OnSubscriptionDeactivated(_ context.Context, sub *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated = append(r.deactivated, sub.ID)
	return nil
}

func (r *recorder) OnCallFailed(_ context.Context, op string, _ types.Address, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedOps = append(r.failedOps, op)
	return nil
}

func (r *recorder) OnCrankCompleted(context.Context, int, int, int, time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cranks++
	return nil
}

func TestRunCrank(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, escrow.WithPlugin(rec))
	f.initialize()
	f.registerProvider(provider)
	f.registerProvider(other)
	planID := f.createPlan(provider, 1000, day)
	rejected := f.createPlan(other, 10, day)

	funded, err := f.subscribe(alice, 5000, planID)
	require.NoError(t, err)
	broke, err := f.subscribe(bob, 1000, planID)
	require.NoError(t, err)
	refused, err := f.subscribe(bob, 100, rejected)
	require.NoError(t, err)

	// Nothing is due yet.
	report, err := f.engine.RunCrank(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed+report.Deactivated+report.Failed)

	f.chain.Advance(day)
	f.chain.RejectTransfersTo(other)

	report, err = f.engine.RunCrank(f.ctx)
	require.NoError(t, err)
	assert.False(t, report.RunID.IsNil())
	assert.Equal(t, f.chain.Now(f.ctx), report.DueAt)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Deactivated)
	assert.Equal(t, 1, report.Failed)

	sub, err := f.engine.GetSubscription(f.ctx, funded)
	require.NoError(t, err)
	assert.True(t, sub.Active)
	assert.Equal(t, f.chain.Now(f.ctx), sub.LastPaymentTime)

	sub, err = f.engine.GetSubscription(f.ctx, broke)
	require.NoError(t, err)
	assert.False(t, sub.Active)

	sub, err = f.engine.GetSubscription(f.ctx, refused)
	require.NoError(t, err)
	assert.True(t, sub.Active, "a refused transfer leaves the subscription due")

	rec.mu.Lock()
	assert.Equal(t, []uint64{broke}, rec.deactivated)
	assert.Equal(t, 2, rec.cranks)
	assert.Contains(t, rec.failedOps, "process_subscription_payment")
	rec.mu.Unlock()
	f.assertSolvent()
}

func TestCrankBatchSize(t *testing.T) {
	f := newFixture(t, escrow.WithCrankBatchSize(2))
	f.initialize()
	f.registerProvider(provider)
	planID := f.createPlan(provider, 10, 60)

	for _, user := range []types.Address{alice, bob, other} {
		_, err := f.subscribe(user, 100, planID)
		require.NoError(t, err)
	}

	f.chain.Advance(60)
	report, err := f.engine.RunCrank(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	report, err = f.engine.RunCrank(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed, "the remaining due subscription is picked up next run")
}

func TestPluginsSeeCommittedEventsOnly(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, escrow.WithPlugin(rec))
	f.initialize()
	f.registerProvider(provider)
	planID := f.createPlan(provider, 1000, day)

	_, err := f.subscribe(alice, 500, planID)
	require.Error(t, err)

	_, err = f.subscribe(alice, 1000, planID)
	require.NoError(t, err)
	require.NoError(t, f.deposit(alice, 1), "hook errors never fail a call")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{
		event.NameSubscriptionCreated,
		event.NamePaymentProcessed,
		event.NameProviderEarnings,
		event.NameEscrowDeposit,
	}, rec.names)
	assert.Equal(t, []string{"subscribe"}, rec.failedOps)
}

func TestStartStop(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, escrow.WithPlugin(rec), escrow.WithCrankSchedule("@every 1h"))

	require.NoError(t, f.engine.Start(f.ctx))
	require.NoError(t, f.engine.Start(f.ctx), "start is idempotent")
	f.initialize()
	require.NoError(t, f.engine.Stop())
	require.NoError(t, f.engine.Stop(), "stop is idempotent")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.inits)
	assert.Equal(t, 1, rec.shutdowns)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, escrow.WithCrankSchedule("every now and then"))
	require.Error(t, f.engine.Start(f.ctx))
}
