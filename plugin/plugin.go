// Package plugin provides an extensible plugin system for Escrow.
// Plugins hook into engine lifecycle and into the events of committed calls.
// Hooks never influence the outcome of a call: they run after it commits and
// their errors are only logged.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Domain event hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called after a provider registration commits.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, e *event.ProviderRegistered) error
}

// OnPlanCreated is called after a plan is published.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, e *event.PlanCreated) error
}

// OnSubscriptionCreated is called after a subscribe commits.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, e *event.SubscriptionCreated) error
}

// OnPaymentProcessed is called for every committed charge.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, e *event.PaymentProcessed) error
}

// OnProviderEarnings is called with the provider's share of every charge.
type OnProviderEarnings interface {
	Plugin
	OnProviderEarnings(ctx context.Context, e *event.ProviderEarnings) error
}

// OnEscrowDeposit is called after a deposit commits.
type OnEscrowDeposit interface {
	Plugin
	OnEscrowDeposit(ctx context.Context, e *event.EscrowDeposit) error
}

// OnEscrowWithdrawal is called after a withdrawal commits.
type OnEscrowWithdrawal interface {
	Plugin
	OnEscrowWithdrawal(ctx context.Context, e *event.EscrowWithdrawal) error
}

// ──────────────────────────────────────────────────
// Engine hooks
// ──────────────────────────────────────────────────

// OnSubscriptionDeactivated is called after a subscription was switched off
// because its subscriber could not cover a renewal.
type OnSubscriptionDeactivated interface {
	Plugin
	OnSubscriptionDeactivated(ctx context.Context, sub *subscription.Subscription) error
}

// OnCallFailed is called when an operation is rejected.
type OnCallFailed interface {
	Plugin
	OnCallFailed(ctx context.Context, op string, caller types.Address, err error) error
}

// OnCrankCompleted is called after every crank run.
type OnCrankCompleted interface {
	Plugin
	OnCrankCompleted(ctx context.Context, processed, deactivated, failed int, elapsed time.Duration) error
}
