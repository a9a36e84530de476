package audithook

// Action constants for audit events.
const (
	// Provider actions
	ActionProviderRegistered = "provider.registered"

	// Plan actions
	ActionPlanCreated = "plan.created"

	// Subscription actions
	ActionSubscriptionCreated     = "subscription.created"
	ActionSubscriptionDeactivated = "subscription.deactivated"

	// Payment actions
	ActionPaymentProcessed = "payment.processed"
	ActionProviderEarnings = "provider.earnings"

	// Escrow actions
	ActionEscrowDeposit    = "escrow.deposit"
	ActionEscrowWithdrawal = "escrow.withdrawal"

	// Engine actions
	ActionCallRejected = "call.rejected"
)

// Resource constants for audit events.
const (
	ResourceProvider     = "provider"
	ResourcePlan         = "plan"
	ResourceSubscription = "subscription"
	ResourceBalance      = "balance"
	ResourceCall         = "call"
)

// Category constants for audit events.
const (
	CategoryCatalog      = "catalog"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryEscrow       = "escrow"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
