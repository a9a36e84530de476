package payment

import (
	"context"

	"github.com/xraph/escrow/types"
)

type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, opts ListOpts) ([]*Payment, error)
}

// ListOpts filters receipts, returned oldest first. Zero values disable a
// filter.
type ListOpts struct {
	SubscriptionID uint64
	PlanID         uint64
	From           types.Address
	To             types.Address
	Limit          int
	Offset         int
}
