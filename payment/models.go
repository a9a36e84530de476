// Package payment records receipts for every successful subscription charge.
package payment

import (
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Kind distinguishes the charge taken at subscribe time from renewals.
type Kind string

const (
	KindInitial   Kind = "initial"
	KindRecurring Kind = "recurring"
)

// Payment is the receipt of one charge. Price = ProtocolFee + ProviderAmount.
type Payment struct {
	types.Entity
	ID             id.PaymentID  `json:"id"`
	SubscriptionID uint64        `json:"subscription_id"`
	PlanID         uint64        `json:"plan_id"`
	From           types.Address `json:"from"`
	To             types.Address `json:"to"`
	Price          types.Amount  `json:"price"`
	ProtocolFee    types.Amount  `json:"protocol_fee"`
	ProviderAmount types.Amount  `json:"provider_amount"`
	PaidAt         uint64        `json:"paid_at"`
	Kind           Kind          `json:"kind"`
}
