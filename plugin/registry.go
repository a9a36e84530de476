package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never inspects plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                    []OnInit
	onShutdown                []OnShutdown
	onProviderRegistered      []OnProviderRegistered
	onPlanCreated             []OnPlanCreated
	onSubscriptionCreated     []OnSubscriptionCreated
	onPaymentProcessed        []OnPaymentProcessed
	onProviderEarnings        []OnProviderEarnings
	onEscrowDeposit           []OnEscrowDeposit
	onEscrowWithdrawal        []OnEscrowWithdrawal
	onSubscriptionDeactivated []OnSubscriptionDeactivated
	onCallFailed              []OnCallFailed
	onCrankCompleted          []OnCrankCompleted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
	}
	if v, ok := p.(OnPlanCreated); ok {
		r.onPlanCreated = append(r.onPlanCreated, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnProviderEarnings); ok {
		r.onProviderEarnings = append(r.onProviderEarnings, v)
	}
	if v, ok := p.(OnEscrowDeposit); ok {
		r.onEscrowDeposit = append(r.onEscrowDeposit, v)
	}
	if v, ok := p.(OnEscrowWithdrawal); ok {
		r.onEscrowWithdrawal = append(r.onEscrowWithdrawal, v)
	}
	if v, ok := p.(OnSubscriptionDeactivated); ok {
		r.onSubscriptionDeactivated = append(r.onSubscriptionDeactivated, v)
	}
	if v, ok := p.(OnCallFailed); ok {
		r.onCallFailed = append(r.onCallFailed, v)
	}
	if v, ok := p.(OnCrankCompleted); ok {
		r.onCrankCompleted = append(r.onCrankCompleted, v)
	}

	r.logger.Debug("plugin registered",
		"plugin", p.Name(),
		"hooks", implementedHooks(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnProviderRegistered", reflect.TypeFor[OnProviderRegistered]()},
	{"OnPlanCreated", reflect.TypeFor[OnPlanCreated]()},
	{"OnSubscriptionCreated", reflect.TypeFor[OnSubscriptionCreated]()},
	{"OnPaymentProcessed", reflect.TypeFor[OnPaymentProcessed]()},
	{"OnProviderEarnings", reflect.TypeFor[OnProviderEarnings]()},
	{"OnEscrowDeposit", reflect.TypeFor[OnEscrowDeposit]()},
	{"OnEscrowWithdrawal", reflect.TypeFor[OnEscrowWithdrawal]()},
	{"OnSubscriptionDeactivated", reflect.TypeFor[OnSubscriptionDeactivated]()},
	{"OnCallFailed", reflect.TypeFor[OnCallFailed]()},
	{"OnCrankCompleted", reflect.TypeFor[OnCrankCompleted]()},
}

// implementedHooks returns the hook interfaces implemented by the plugin.
func implementedHooks(p Plugin) []string {
	var hooks []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			hooks = append(hooks, h.name)
		}
	}
	return hooks
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(ctx, r, "OnInit", plugins, func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// Emit routes a domain event to the hooks registered for its type.
func (r *Registry) Emit(ctx context.Context, e event.Event) {
	r.mu.RLock()
	var (
		providerRegistered  = r.onProviderRegistered
		planCreated         = r.onPlanCreated
		subscriptionCreated = r.onSubscriptionCreated
		paymentProcessed    = r.onPaymentProcessed
		providerEarnings    = r.onProviderEarnings
		escrowDeposit       = r.onEscrowDeposit
		escrowWithdrawal    = r.onEscrowWithdrawal
	)
	r.mu.RUnlock()

	switch ev := e.(type) {
	case *event.ProviderRegistered:
		dispatch(ctx, r, "OnProviderRegistered", providerRegistered,
			func(p OnProviderRegistered) error { return p.OnProviderRegistered(ctx, ev) })
	case *event.PlanCreated:
		dispatch(ctx, r, "OnPlanCreated", planCreated,
			func(p OnPlanCreated) error { return p.OnPlanCreated(ctx, ev) })
	case *event.SubscriptionCreated:
		dispatch(ctx, r, "OnSubscriptionCreated", subscriptionCreated,
			func(p OnSubscriptionCreated) error { return p.OnSubscriptionCreated(ctx, ev) })
	case *event.PaymentProcessed:
		dispatch(ctx, r, "OnPaymentProcessed", paymentProcessed,
			func(p OnPaymentProcessed) error { return p.OnPaymentProcessed(ctx, ev) })
	case *event.ProviderEarnings:
		dispatch(ctx, r, "OnProviderEarnings", providerEarnings,
			func(p OnProviderEarnings) error { return p.OnProviderEarnings(ctx, ev) })
	case *event.EscrowDeposit:
		dispatch(ctx, r, "OnEscrowDeposit", escrowDeposit,
			func(p OnEscrowDeposit) error { return p.OnEscrowDeposit(ctx, ev) })
	case *event.EscrowWithdrawal:
		dispatch(ctx, r, "OnEscrowWithdrawal", escrowWithdrawal,
			func(p OnEscrowWithdrawal) error { return p.OnEscrowWithdrawal(ctx, ev) })
	default:
		r.logger.Warn("plugin: no hook for event", "event", e.EventName())
	}
}

// EmitSubscriptionDeactivated notifies plugins of a deactivation.
func (r *Registry) EmitSubscriptionDeactivated(ctx context.Context, sub *subscription.Subscription) {
	r.mu.RLock()
	plugins := r.onSubscriptionDeactivated
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSubscriptionDeactivated", plugins,
		func(p OnSubscriptionDeactivated) error { return p.OnSubscriptionDeactivated(ctx, sub) })
}

// EmitCallFailed notifies plugins of a rejected operation.
func (r *Registry) EmitCallFailed(ctx context.Context, op string, caller types.Address, err error) {
	r.mu.RLock()
	plugins := r.onCallFailed
	r.mu.RUnlock()

	dispatch(ctx, r, "OnCallFailed", plugins,
		func(p OnCallFailed) error { return p.OnCallFailed(ctx, op, caller, err) })
}

// EmitCrankCompleted notifies plugins of a finished crank run.
func (r *Registry) EmitCrankCompleted(ctx context.Context, processed, deactivated, failed int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onCrankCompleted
	r.mu.RUnlock()

	dispatch(ctx, r, "OnCrankCompleted", plugins,
		func(p OnCrankCompleted) error {
			return p.OnCrankCompleted(ctx, processed, deactivated, failed, elapsed)
		})
}

func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, call func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return call(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
