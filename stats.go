package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Totals sums payment receipts. Revenue is what subscribers were charged,
// Earnings what reached providers and Fees what the protocol kept, so
// Revenue = Earnings + Fees.
type Totals struct {
	Payments uint64       `json:"payments"`
	Revenue  types.Amount `json:"revenue"`
	Earnings types.Amount `json:"earnings"`
	Fees     types.Amount `json:"fees"`
}

func (t *Totals) add(p *payment.Payment) error {
	var err error
	if t.Revenue, err = t.Revenue.Add(p.Price); err != nil {
		return err
	}
	if t.Earnings, err = t.Earnings.Add(p.ProviderAmount); err != nil {
		return err
	}
	if t.Fees, err = t.Fees.Add(p.ProtocolFee); err != nil {
		return err
	}
	t.Payments++
	return nil
}

// ProviderStats is the dashboard view of one provider.
type ProviderStats struct {
	Provider            types.Address `json:"provider"`
	Registered          bool          `json:"registered"`
	TotalPlans          uint64        `json:"total_plans"`
	TotalSubscriptions  uint64        `json:"total_subscriptions"`
	ActiveSubscriptions uint64        `json:"active_subscriptions"`
	Totals
}

// PlanStats is the dashboard view of one plan.
type PlanStats struct {
	PlanID              uint64        `json:"plan_id"`
	Provider            types.Address `json:"provider"`
	TotalSubscriptions  uint64        `json:"total_subscriptions"`
	ActiveSubscriptions uint64        `json:"active_subscriptions"`
	Totals
}

// SubscriptionStats is what one subscription has paid so far.
type SubscriptionStats struct {
	SubscriptionID uint64 `json:"subscription_id"`
	Active         bool   `json:"active"`
	Totals
}

// GlobalStats aggregates the whole escrow. Escrowed is the sum of all user
// balances.
type GlobalStats struct {
	TotalProviders      uint64       `json:"total_providers"`
	TotalPlans          uint64       `json:"total_plans"`
	TotalSubscriptions  uint64       `json:"total_subscriptions"`
	ActiveSubscriptions uint64       `json:"active_subscriptions"`
	Escrowed            types.Amount `json:"escrowed"`
	Totals
}

// ProviderStats aggregates the plans, subscriptions and receipts of addr.
// An unknown address yields zero stats.
func (e *Engine) ProviderStats(ctx context.Context, addr types.Address) (*ProviderStats, error) {
	out := &ProviderStats{Provider: addr}
	err := e.read(func() error {
		var err error
		if out.Registered, err = isRegistered(ctx, e.store, addr); err != nil {
			return err
		}

		plans, err := e.store.ListPlans(ctx, plan.ListOpts{Provider: addr})
		if err != nil {
			return storeErr("list plans", err)
		}
		out.TotalPlans = uint64(len(plans))
		for _, p := range plans {
			total, active, err := e.countSubscriptions(ctx, subscription.ListOpts{PlanID: p.ID})
			if err != nil {
				return err
			}
			out.TotalSubscriptions += total
			out.ActiveSubscriptions += active
		}

		return e.sumPayments(ctx, payment.ListOpts{To: addr}, &out.Totals)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlanStats aggregates the subscriptions and receipts of a plan.
func (e *Engine) PlanStats(ctx context.Context, planID uint64) (*PlanStats, error) {
	out := &PlanStats{PlanID: planID}
	err := e.read(func() error {
		p, err := loadPlan(ctx, e.store, planID)
		if err != nil {
			return err
		}
		out.Provider = p.Provider

		out.TotalSubscriptions, out.ActiveSubscriptions, err = e.countSubscriptions(ctx, subscription.ListOpts{PlanID: planID})
		if err != nil {
			return err
		}
		return e.sumPayments(ctx, payment.ListOpts{PlanID: planID}, &out.Totals)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubscriptionStats sums what a subscription has paid, the initial charge
// included.
func (e *Engine) SubscriptionStats(ctx context.Context, subID uint64) (*SubscriptionStats, error) {
	out := &SubscriptionStats{SubscriptionID: subID}
	err := e.read(func() error {
		sub, err := e.store.GetSubscription(ctx, subID)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return fmt.Errorf("%w: subscription %d", ErrNotFound, subID)
		}
		if err != nil {
			return storeErr("get subscription", err)
		}
		out.Active = sub.Active
		return e.sumPayments(ctx, payment.ListOpts{SubscriptionID: subID}, &out.Totals)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GlobalStats aggregates every provider, plan, subscription, receipt and
// balance.
func (e *Engine) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	out := &GlobalStats{}
	err := e.read(func() error {
		providers, err := e.store.ListProviders(ctx, provider.ListOpts{})
		if err != nil {
			return storeErr("list providers", err)
		}
		out.TotalProviders = uint64(len(providers))

		plans, err := e.store.ListPlans(ctx, plan.ListOpts{})
		if err != nil {
			return storeErr("list plans", err)
		}
		out.TotalPlans = uint64(len(plans))

		out.TotalSubscriptions, out.ActiveSubscriptions, err = e.countSubscriptions(ctx, subscription.ListOpts{})
		if err != nil {
			return err
		}

		balances, err := e.store.ListBalances(ctx)
		if err != nil {
			return storeErr("list balances", err)
		}
		for _, b := range balances {
			if out.Escrowed, err = out.Escrowed.Add(b.Amount); err != nil {
				return ErrAmountOverflow
			}
		}

		return e.sumPayments(ctx, payment.ListOpts{}, &out.Totals)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) countSubscriptions(ctx context.Context, opts subscription.ListOpts) (total, active uint64, err error) {
	subs, err := e.store.ListSubscriptions(ctx, opts)
	if err != nil {
		return 0, 0, storeErr("list subscriptions", err)
	}
	for _, s := range subs {
		if s.Active {
			active++
		}
	}
	return uint64(len(subs)), active, nil
}

func (e *Engine) sumPayments(ctx context.Context, opts payment.ListOpts, t *Totals) error {
	receipts, err := e.store.ListPayments(ctx, opts)
	if err != nil {
		return storeErr("list payments", err)
	}
	for _, p := range receipts {
		if err := t.add(p); err != nil {
			return ErrAmountOverflow
		}
	}
	return nil
}
