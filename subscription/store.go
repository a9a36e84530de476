package subscription

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store persists subscriptions. GetSubscription returns
// escrow.ErrSubscriptionNotFound for unknown ids.
type Store interface {
	CreateSubscription(ctx context.Context, s *Subscription) error
	GetSubscription(ctx context.Context, subID uint64) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	DeleteSubscription(ctx context.Context, subID uint64) error
	ListSubscriptions(ctx context.Context, opts ListOpts) ([]*Subscription, error)
}

// ListOpts filters subscriptions, returned in ascending id order after
// AfterID. Zero values disable a filter. Due selection (active and charge
// time reached) needs plan intervals and is applied by the engine on top of
// Active.
type ListOpts struct {
	Subscriber types.Address
	PlanID     uint64
	Active     *bool
	AfterID    uint64
	Limit      int
}
