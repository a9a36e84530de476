package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions audits only the given actions. Without it (or
// WithDisabledActions) every action is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.enabled = newActionSet(actions) }
}

// WithDisabledActions audits every action except the given ones.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = newActionSet(AllActions())
		}
		for _, a := range actions {
			delete(e.enabled, a)
		}
	}
}

// AllActions lists every action the extension can record.
func AllActions() []string {
	return []string{
		ActionProviderRegistered,
		ActionPlanCreated,
		ActionSubscriptionCreated,
		ActionSubscriptionDeactivated,
		ActionPaymentProcessed,
		ActionProviderEarnings,
		ActionEscrowDeposit,
		ActionEscrowWithdrawal,
		ActionCallRejected,
	}
}

func newActionSet(actions []string) map[string]bool {
	set := make(map[string]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}
