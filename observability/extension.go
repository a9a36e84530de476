// Package observability provides a metrics extension for Escrow that records
// lifecycle event counts through a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnProviderRegistered      = (*MetricsExtension)(nil)
	_ plugin.OnPlanCreated             = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentProcessed        = (*MetricsExtension)(nil)
	_ plugin.OnProviderEarnings        = (*MetricsExtension)(nil)
	_ plugin.OnEscrowDeposit           = (*MetricsExtension)(nil)
	_ plugin.OnEscrowWithdrawal        = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionDeactivated = (*MetricsExtension)(nil)
	_ plugin.OnCallFailed              = (*MetricsExtension)(nil)
	_ plugin.OnCrankCompleted          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide escrow metrics.
// Register it as an Escrow plugin to track catalog, payment and custody flow.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	ProviderRegistered Counter
	PlanCreated        Counter
	PlanPrice          Histogram

	// Subscription metrics
	SubscriptionCreated     Counter
	SubscriptionDeactivated Counter

	// Payment metrics
	PaymentProcessed Counter
	PaymentAmount    Histogram
	ProviderEarnings Counter

	// Custody metrics
	DepositCount     Counter
	DepositAmount    Histogram
	WithdrawalCount  Counter
	WithdrawalAmount Histogram

	// Crank metrics
	CrankRuns        Counter
	CrankProcessed   Counter
	CrankDeactivated Counter
	CrankFailed      Counter
	CrankLatency     Histogram

	// Error metrics
	callFailures map[escrow.Kind]Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	m := &MetricsExtension{
		factory: factory,

		ProviderRegistered: factory.Counter("escrow.provider.registered"),
		PlanCreated:        factory.Counter("escrow.plan.created"),
		PlanPrice:          factory.Histogram("escrow.plan.price"),

		SubscriptionCreated:     factory.Counter("escrow.subscription.created"),
		SubscriptionDeactivated: factory.Counter("escrow.subscription.deactivated"),

		PaymentProcessed: factory.Counter("escrow.payment.processed"),
		PaymentAmount:    factory.Histogram("escrow.payment.amount"),
		ProviderEarnings: factory.Counter("escrow.provider.earnings"),

		DepositCount:     factory.Counter("escrow.deposit.count"),
		DepositAmount:    factory.Histogram("escrow.deposit.amount"),
		WithdrawalCount:  factory.Counter("escrow.withdrawal.count"),
		WithdrawalAmount: factory.Histogram("escrow.withdrawal.amount"),

		CrankRuns:        factory.Counter("escrow.crank.runs"),
		CrankProcessed:   factory.Counter("escrow.crank.processed"),
		CrankDeactivated: factory.Counter("escrow.crank.deactivated"),
		CrankFailed:      factory.Counter("escrow.crank.failed"),
		CrankLatency:     factory.Histogram("escrow.crank.latency_ms"),

		callFailures: make(map[escrow.Kind]Counter),
	}
	for _, k := range []escrow.Kind{
		escrow.KindUnauthorized,
		escrow.KindInvalidInput,
		escrow.KindInsufficientFunds,
		escrow.KindNotFound,
	} {
		m.callFailures[k] = factory.Counter("escrow.call.failed." + string(k))
	}
	m.callFailures[escrow.KindNone] = factory.Counter("escrow.call.failed.other")
	return m
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (m *MetricsExtension) OnProviderRegistered(_ context.Context, _ *event.ProviderRegistered) error {
	m.ProviderRegistered.Inc()
	return nil
}

// OnPlanCreated implements plugin.OnPlanCreated.
func (m *MetricsExtension) OnPlanCreated(_ context.Context, e *event.PlanCreated) error {
	m.PlanCreated.Inc()
	m.PlanPrice.Observe(e.Price.Float64())
	return nil
}

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ *event.SubscriptionCreated) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (m *MetricsExtension) OnPaymentProcessed(_ context.Context, e *event.PaymentProcessed) error {
	m.PaymentProcessed.Inc()
	m.PaymentAmount.Observe(e.Amount.Float64())
	return nil
}

// OnProviderEarnings implements plugin.OnProviderEarnings.
func (m *MetricsExtension) OnProviderEarnings(_ context.Context, e *event.ProviderEarnings) error {
	m.ProviderEarnings.Add(e.Amount.Float64())
	return nil
}

// OnEscrowDeposit implements plugin.OnEscrowDeposit.
func (m *MetricsExtension) OnEscrowDeposit(_ context.Context, e *event.EscrowDeposit) error {
	m.DepositCount.Inc()
	m.DepositAmount.Observe(e.Amount.Float64())
	return nil
}

// OnEscrowWithdrawal implements plugin.OnEscrowWithdrawal.
func (m *MetricsExtension) OnEscrowWithdrawal(_ context.Context, e *event.EscrowWithdrawal) error {
	m.WithdrawalCount.Inc()
	m.WithdrawalAmount.Observe(e.Amount.Float64())
	return nil
}

// OnSubscriptionDeactivated implements plugin.OnSubscriptionDeactivated.
func (m *MetricsExtension) OnSubscriptionDeactivated(_ context.Context, _ *subscription.Subscription) error {
	m.SubscriptionDeactivated.Inc()
	return nil
}

// OnCallFailed implements plugin.OnCallFailed.
func (m *MetricsExtension) OnCallFailed(_ context.Context, _ string, _ types.Address, err error) error {
	m.callFailures[escrow.KindOf(err)].Inc()
	return nil
}

// OnCrankCompleted implements plugin.OnCrankCompleted.
func (m *MetricsExtension) OnCrankCompleted(_ context.Context, processed, deactivated, failed int, elapsed time.Duration) error {
	m.CrankRuns.Inc()
	m.CrankProcessed.Add(float64(processed))
	m.CrankDeactivated.Add(float64(deactivated))
	m.CrankFailed.Add(float64(failed))
	m.CrankLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
