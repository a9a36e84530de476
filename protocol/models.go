// Package protocol holds the singleton escrow configuration and counters.
package protocol

import "github.com/xraph/escrow/types"

const (
	// DefaultFeeBps is the protocol fee set by initialization (2.5%).
	DefaultFeeBps uint64 = 250

	// BasisPoints is the fee denominator.
	BasisPoints uint64 = 10000
)

// State is the protocol-wide record. Admin and FeeBps are written once by
// initialization and never change afterwards. The counters only grow.
type State struct {
	types.Entity
	Admin              types.Address `json:"admin"`
	FeeBps             uint64        `json:"fee_bps"`
	NextPlanID         uint64        `json:"next_plan_id"`
	NextSubscriptionID uint64        `json:"next_subscription_id"`
	NextEventSeq       uint64        `json:"next_event_seq"`
	FeesAccrued        types.Amount  `json:"fees_accrued"`
	InitializedAt      uint64        `json:"initialized_at"`
}

// Initialized reports whether an admin has been recorded.
func (s *State) Initialized() bool {
	return s != nil && !types.IsZeroAddress(s.Admin)
}
