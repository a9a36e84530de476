// Package audithook bridges Escrow events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnProviderRegistered      = (*Extension)(nil)
	_ plugin.OnPlanCreated             = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated     = (*Extension)(nil)
	_ plugin.OnPaymentProcessed        = (*Extension)(nil)
	_ plugin.OnProviderEarnings        = (*Extension)(nil)
	_ plugin.OnEscrowDeposit           = (*Extension)(nil)
	_ plugin.OnEscrowWithdrawal        = (*Extension)(nil)
	_ plugin.OnSubscriptionDeactivated = (*Extension)(nil)
	_ plugin.OnCallFailed              = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Escrow events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (e *Extension) OnProviderRegistered(ctx context.Context, ev *event.ProviderRegistered) error {
	return e.record(ctx, auditEntry{
		action:     ActionProviderRegistered,
		resource:   ResourceProvider,
		resourceID: ev.Provider.Hex(),
		category:   CategoryCatalog,
		actor:      ev.Provider,
	}, "name", ev.Name)
}

// OnPlanCreated implements plugin.OnPlanCreated.
func (e *Extension) OnPlanCreated(ctx context.Context, ev *event.PlanCreated) error {
	return e.record(ctx, auditEntry{
		action:     ActionPlanCreated,
		resource:   ResourcePlan,
		resourceID: formatID(ev.PlanID),
		category:   CategoryCatalog,
		actor:      ev.Provider,
	}, "price", ev.Price.String(), "interval", ev.Interval)
}

// ──────────────────────────────────────────────────
// Subscription & payment hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, ev *event.SubscriptionCreated) error {
	return e.record(ctx, auditEntry{
		action:     ActionSubscriptionCreated,
		resource:   ResourceSubscription,
		resourceID: formatID(ev.SubscriptionID),
		category:   CategorySubscription,
		actor:      ev.User,
	}, "plan_id", ev.PlanID)
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (e *Extension) OnPaymentProcessed(ctx context.Context, ev *event.PaymentProcessed) error {
	return e.record(ctx, auditEntry{
		action:     ActionPaymentProcessed,
		resource:   ResourceSubscription,
		resourceID: formatID(ev.SubscriptionID),
		category:   CategoryPayment,
		actor:      ev.From,
	}, "to", ev.To.Hex(), "amount", ev.Amount.String())
}

// OnProviderEarnings implements plugin.OnProviderEarnings.
func (e *Extension) OnProviderEarnings(ctx context.Context, ev *event.ProviderEarnings) error {
	return e.record(ctx, auditEntry{
		action:     ActionProviderEarnings,
		resource:   ResourceProvider,
		resourceID: ev.Provider.Hex(),
		category:   CategoryPayment,
	}, "plan_id", ev.PlanID, "amount", ev.Amount.String())
}

// OnSubscriptionDeactivated implements plugin.OnSubscriptionDeactivated.
func (e *Extension) OnSubscriptionDeactivated(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, auditEntry{
		action:     ActionSubscriptionDeactivated,
		severity:   SeverityWarning,
		resource:   ResourceSubscription,
		resourceID: formatID(sub.ID),
		category:   CategorySubscription,
		actor:      sub.Subscriber,
		err:        escrow.ErrInsufficientBalance,
	}, "plan_id", sub.PlanID, "deactivated_at", sub.DeactivatedAt)
}

// ──────────────────────────────────────────────────
// Escrow hooks
// ──────────────────────────────────────────────────

// OnEscrowDeposit implements plugin.OnEscrowDeposit.
func (e *Extension) OnEscrowDeposit(ctx context.Context, ev *event.EscrowDeposit) error {
	return e.record(ctx, auditEntry{
		action:     ActionEscrowDeposit,
		resource:   ResourceBalance,
		resourceID: ev.User.Hex(),
		category:   CategoryEscrow,
		actor:      ev.User,
	}, "amount", ev.Amount.String(), "new_balance", ev.NewBalance.String())
}

// OnEscrowWithdrawal implements plugin.OnEscrowWithdrawal.
func (e *Extension) OnEscrowWithdrawal(ctx context.Context, ev *event.EscrowWithdrawal) error {
	return e.record(ctx, auditEntry{
		action:     ActionEscrowWithdrawal,
		resource:   ResourceBalance,
		resourceID: ev.User.Hex(),
		category:   CategoryEscrow,
		actor:      ev.User,
	}, "amount", ev.Amount.String(), "new_balance", ev.NewBalance.String())
}

// OnCallFailed implements plugin.OnCallFailed. Unauthorized calls are
// recorded as errors, every other rejection as a warning.
func (e *Extension) OnCallFailed(ctx context.Context, op string, caller types.Address, err error) error {
	severity := SeverityWarning
	if errors.Is(err, escrow.ErrUnauthorized) {
		severity = SeverityError
	}
	return e.record(ctx, auditEntry{
		action:     ActionCallRejected,
		severity:   severity,
		resource:   ResourceCall,
		resourceID: op,
		category:   CategoryAccess,
		actor:      caller,
		err:        err,
	}, "kind", string(escrow.KindOf(err)))
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

type auditEntry struct {
	action     string
	severity   string
	resource   string
	resourceID string
	category   string
	actor      types.Address
	err        error
}

// record builds and sends an audit event if the action is enabled. Recorder
// failures are logged and never returned.
func (e *Extension) record(ctx context.Context, entry auditEntry, kvPairs ...any) error {
	if e.enabled != nil && !e.enabled[entry.action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	severity, outcome := entry.severity, OutcomeSuccess
	if severity == "" {
		severity = SeverityInfo
	}

	var reason string
	if entry.err != nil {
		reason = entry.err.Error()
		outcome = OutcomeFailure
	}

	evt := &AuditEvent{
		Action:     entry.action,
		Resource:   entry.resource,
		Category:   entry.category,
		ResourceID: entry.resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}
	if !types.IsZeroAddress(entry.actor) {
		evt.Actor = entry.actor.Hex()
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", entry.action,
			"resource_id", entry.resourceID,
			"error", recErr,
		)
	}
	return nil
}

func formatID(v uint64) string { return strconv.FormatUint(v, 10) }
