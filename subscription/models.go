// Package subscription models a subscriber's enrollment in a plan.
package subscription

import (
	"math/bits"

	"github.com/xraph/escrow/types"
)

// Subscription moves from active to inactive exactly once and never back.
// LastPaymentTime is the host time of the most recent successful charge.
type Subscription struct {
	types.Entity
	ID              uint64        `json:"id"`
	PlanID          uint64        `json:"plan_id"`
	Subscriber      types.Address `json:"subscriber"`
	LastPaymentTime uint64        `json:"last_payment_time"`
	Active          bool          `json:"active"`
	StartedAt       uint64        `json:"started_at"`
	DeactivatedAt   uint64        `json:"deactivated_at,omitempty"`
}

// NextPaymentDue returns last payment time plus interval. The second result is
// false when the sum does not fit in 64 bits, in which case the subscription
// can never fall due.
func NextPaymentDue(lastPaymentTime, interval uint64) (uint64, bool) {
	due, carry := bits.Add64(lastPaymentTime, interval, 0)
	return due, carry == 0
}

// IsDue reports whether a charge with the given interval may be taken at now.
func (s *Subscription) IsDue(interval, now uint64) bool {
	due, ok := NextPaymentDue(s.LastPaymentTime, interval)
	return ok && now >= due
}
