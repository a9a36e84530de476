package escrow

import (
	"errors"
	"fmt"

	"github.com/xraph/escrow/host"
)

// Error kinds. Every failed operation matches exactly one of these with
// errors.Is, unless it failed for an infrastructure reason (store, context).
var (
	ErrUnauthorized      = errors.New("escrow: unauthorized")
	ErrInvalidInput      = errors.New("escrow: invalid input")
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	ErrNotFound          = errors.New("escrow: not found")
)

// Detailed errors. Each wraps its kind.
var (
	// Protocol
	ErrAlreadyInitialized = fmt.Errorf("%w: already initialized", ErrInvalidInput)
	ErrNotInitialized     = fmt.Errorf("%w: not initialized", ErrInvalidInput)
	ErrZeroAdmin          = fmt.Errorf("%w: admin must not be the zero address", ErrInvalidInput)
	ErrValueNotAccepted   = fmt.Errorf("%w: operation does not accept attached value", ErrInvalidInput)

	// Providers
	ErrNameTooLong               = fmt.Errorf("%w: provider name longer than %d bytes", ErrInvalidInput, MaxProviderNameLen)
	ErrProviderAlreadyRegistered = fmt.Errorf("%w: provider already registered", ErrInvalidInput)
	ErrProviderNotRegistered     = fmt.Errorf("%w: caller is not a registered provider", ErrUnauthorized)

	// Plans
	ErrInvalidPrice    = fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	ErrInvalidInterval = fmt.Errorf("%w: interval must be greater than zero", ErrInvalidInput)
	ErrPlanNotFound    = fmt.Errorf("%w: plan", ErrNotFound)

	// Subscriptions
	ErrSubscriptionInactive = fmt.Errorf("%w: subscription is not active", ErrInvalidInput)
	ErrPaymentNotDue        = fmt.Errorf("%w: payment not yet due", ErrInvalidInput)
	ErrTransferFailed       = fmt.Errorf("%w: transfer failed", ErrInvalidInput)

	// Balances
	ErrZeroDeposit           = fmt.Errorf("%w: deposit must be greater than zero", ErrInvalidInput)
	ErrInsufficientBalance   = fmt.Errorf("%w: escrow balance too low", ErrInsufficientFunds)
	ErrInvalidWithdrawAmount = fmt.Errorf("%w: withdraw amount must be greater than zero", ErrInsufficientFunds)
	ErrAmountOverflow        = fmt.Errorf("%w: amount overflow", ErrInvalidInput)
)

// Store lookups. These never escape an operation as-is: the engine maps them
// to a kind or to a default value.
var (
	ErrSubscriptionNotFound = errors.New("escrow: subscription not found")
	ErrProviderNotFound     = errors.New("escrow: provider not found")
	ErrAlreadyExists        = errors.New("escrow: already exists")
)

// Infrastructure errors.
var (
	ErrStoreClosed       = errors.New("escrow: store is closed")
	ErrTransactionFailed = errors.New("escrow: transaction failed")
	ErrMigrationFailed   = errors.New("escrow: migration failed")
	ErrEngineStopped     = errors.New("escrow: engine stopped")
)

// Kind names an error kind.
type Kind string

const (
	KindNone              Kind = ""
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
)

// KindOf classifies err. It returns KindNone for nil and for errors that do
// not belong to any kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindNone
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrProviderNotFound)
}

// IsRetryable returns true if the operation may succeed when repeated later
// without any change by the caller: the charge was not due yet, the recipient
// refused a transfer, or the store was temporarily unavailable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPaymentNotDue) ||
		errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, host.ErrTransferFailed) ||
		errors.Is(err, ErrTransactionFailed)
}
