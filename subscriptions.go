package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// ErrUnknownSubscription is returned when charging a subscription id that was
// never created.
var ErrUnknownSubscription = fmt.Errorf("%w: unknown subscription", ErrInvalidInput)

// Subscribe enrolls the caller in a plan and takes the first charge at once.
// Value attached to the call is credited to the caller's escrow balance
// first, so a caller can fund and subscribe in one call.
func (e *Engine) Subscribe(ctx context.Context, call host.Call, planID uint64) (uint64, error) {
	var subID uint64
	err := e.executePayable(ctx, "subscribe", call, func(c *callContext) error {
		p, err := loadPlan(c.ctx, c.tx, planID)
		if err != nil {
			return err
		}

		bal, err := c.tx.GetBalance(c.ctx, call.Caller)
		if err != nil {
			return storeErr("get balance", err)
		}
		if call.Value.IsPositive() {
			if bal, err = bal.Add(call.Value); err != nil {
				return ErrAmountOverflow
			}
			if err := c.tx.SetBalance(c.ctx, call.Caller, bal); err != nil {
				return storeErr("credit balance", err)
			}
		}

		if bal.LessThan(p.Price) {
			return ErrInsufficientBalance
		}

		fee, providerAmount, err := SplitPayment(p.Price, c.state.FeeBps)
		if err != nil {
			return err
		}

		sub := &subscription.Subscription{
			Entity:          types.NewEntity(),
			ID:              c.state.NextSubscriptionID,
			PlanID:          p.ID,
			Subscriber:      call.Caller,
			LastPaymentTime: c.now,
			Active:          true,
			StartedAt:       c.now,
		}
		if err := c.tx.CreateSubscription(c.ctx, sub); err != nil {
			return storeErr("create subscription", err)
		}

		debited, _ := bal.Sub(p.Price) //nolint:errcheck // bal >= price checked above
		if err := c.tx.SetBalance(c.ctx, call.Caller, debited); err != nil {
			return storeErr("debit balance", err)
		}

		if err := e.host.Transfer(c.ctx, p.Provider, providerAmount); err != nil {
			if restoreErr := c.tx.SetBalance(c.ctx, call.Caller, bal); restoreErr != nil {
				return storeErr("restore balance", restoreErr)
			}
			if delErr := c.tx.DeleteSubscription(c.ctx, sub.ID); delErr != nil {
				return storeErr("discard subscription", delErr)
			}
			return fmt.Errorf("%w: pay provider %s: %w", ErrTransferFailed, p.Provider.Hex(), err)
		}

		c.state.NextSubscriptionID++
		if err := e.settle(c, sub, p, fee, providerAmount, payment.KindInitial); err != nil {
			return err
		}

		c.emit(&event.SubscriptionCreated{SubscriptionID: sub.ID, User: call.Caller, PlanID: p.ID})
		c.emit(&event.PaymentProcessed{From: call.Caller, To: p.Provider, Amount: providerAmount, SubscriptionID: sub.ID})
		c.emit(&event.ProviderEarnings{Provider: p.Provider, PlanID: p.ID, Amount: providerAmount})

		subID = sub.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return subID, nil
}

// ProcessSubscriptionPayment takes the next recurring charge of a due
// subscription. Anyone may call it.
//
// If the subscriber's balance cannot cover the price, the subscription is
// deactivated for good: that change commits even though the call returns
// ErrInsufficientBalance.
func (e *Engine) ProcessSubscriptionPayment(ctx context.Context, call host.Call, subID uint64) error {
	return e.execute(ctx, "process_subscription_payment", call, func(c *callContext) error {
		sub, err := c.tx.GetSubscription(c.ctx, subID)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return ErrUnknownSubscription
		}
		if err != nil {
			return storeErr("get subscription", err)
		}
		if !sub.Active {
			return ErrSubscriptionInactive
		}

		p, err := loadPlan(c.ctx, c.tx, sub.PlanID)
		if err != nil {
			return err
		}

		if !sub.IsDue(p.Interval, c.now) {
			return ErrPaymentNotDue
		}

		bal, err := c.tx.GetBalance(c.ctx, sub.Subscriber)
		if err != nil {
			return storeErr("get balance", err)
		}
		if bal.LessThan(p.Price) {
			sub.Active = false
			sub.DeactivatedAt = c.now
			sub.Touch()
			if err := c.tx.UpdateSubscription(c.ctx, sub); err != nil {
				return storeErr("deactivate subscription", err)
			}
			c.deactivated = append(c.deactivated, sub)
			c.failAfterCommit = ErrInsufficientBalance
			return nil
		}

		fee, providerAmount, err := SplitPayment(p.Price, c.state.FeeBps)
		if err != nil {
			return err
		}

		debited, _ := bal.Sub(p.Price) //nolint:errcheck // bal >= price checked above
		if err := c.tx.SetBalance(c.ctx, sub.Subscriber, debited); err != nil {
			return storeErr("debit balance", err)
		}
		lastPayment := sub.LastPaymentTime
		sub.LastPaymentTime = c.now
		sub.Touch()
		if err := c.tx.UpdateSubscription(c.ctx, sub); err != nil {
			return storeErr("advance subscription", err)
		}

		if err := e.host.Transfer(c.ctx, p.Provider, providerAmount); err != nil {
			if restoreErr := c.tx.SetBalance(c.ctx, sub.Subscriber, bal); restoreErr != nil {
				return storeErr("restore balance", restoreErr)
			}
			sub.LastPaymentTime = lastPayment
			if restoreErr := c.tx.UpdateSubscription(c.ctx, sub); restoreErr != nil {
				return storeErr("restore subscription", restoreErr)
			}
			return fmt.Errorf("%w: pay provider %s: %w", ErrTransferFailed, p.Provider.Hex(), err)
		}

		if err := e.settle(c, sub, p, fee, providerAmount, payment.KindRecurring); err != nil {
			return err
		}

		c.emit(&event.PaymentProcessed{From: sub.Subscriber, To: p.Provider, Amount: providerAmount, SubscriptionID: sub.ID})
		c.emit(&event.ProviderEarnings{Provider: p.Provider, PlanID: p.ID, Amount: providerAmount})
		return nil
	})
}

// settle books a successful charge: the fee stays in custody and a receipt
// is written.
func (e *Engine) settle(c *callContext, sub *subscription.Subscription, p *plan.Plan, fee, providerAmount types.Amount, kind payment.Kind) error {
	accrued, err := c.state.FeesAccrued.Add(fee)
	if err != nil {
		return ErrAmountOverflow
	}
	c.state.FeesAccrued = accrued
	c.touchState()

	receipt := &payment.Payment{
		Entity:         types.NewEntity(),
		ID:             id.NewPaymentID(),
		SubscriptionID: sub.ID,
		PlanID:         p.ID,
		From:           sub.Subscriber,
		To:             p.Provider,
		Price:          p.Price,
		ProtocolFee:    fee,
		ProviderAmount: providerAmount,
		PaidAt:         c.now,
		Kind:           kind,
	}
	if err := c.tx.CreatePayment(c.ctx, receipt); err != nil {
		return storeErr("record payment", err)
	}
	return nil
}

// GetSubscription returns a subscription by id.
func (e *Engine) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	var sub *subscription.Subscription
	err := e.read(func() error {
		var err error
		sub, err = e.store.GetSubscription(ctx, subID)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return fmt.Errorf("%w: subscription %d", ErrNotFound, subID)
		}
		if err != nil {
			return storeErr("get subscription", err)
		}
		return nil
	})
	return sub, err
}

// SubscriptionFilter selects subscriptions for ListSubscriptions.
type SubscriptionFilter struct {
	subscription.ListOpts

	// DueAt, when non-zero, keeps only active subscriptions whose next
	// charge is due at or before this host time.
	DueAt uint64
}

// ListSubscriptions pages subscriptions in ascending id order.
func (e *Engine) ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	err := e.read(func() error {
		var err error
		out, err = e.listSubscriptions(ctx, filter)
		return err
	})
	return out, err
}

func (e *Engine) listSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter.DueAt == 0 {
		subs, err := e.store.ListSubscriptions(ctx, filter.ListOpts)
		if err != nil {
			return nil, storeErr("list subscriptions", err)
		}
		return subs, nil
	}

	active := true
	opts := filter.ListOpts
	opts.Active = &active
	want := opts.Limit

	intervals := make(map[uint64]uint64)
	var out []*subscription.Subscription
	for {
		page, err := e.store.ListSubscriptions(ctx, opts)
		if err != nil {
			return nil, storeErr("list subscriptions", err)
		}
		for _, sub := range page {
			interval, ok := intervals[sub.PlanID]
			if !ok {
				p, err := loadPlan(ctx, e.store, sub.PlanID)
				if err != nil {
					return nil, err
				}
				interval = p.Interval
				intervals[sub.PlanID] = interval
			}
			if sub.IsDue(interval, filter.DueAt) {
				out = append(out, sub)
				if want > 0 && len(out) == want {
					return out, nil
				}
			}
		}
		if opts.Limit <= 0 || len(page) < opts.Limit {
			return out, nil
		}
		opts.AfterID = page[len(page)-1].ID
	}
}

// NextPaymentDue returns the host time at which the subscription's next
// charge may be taken. ok is false when that time does not fit in 64 bits.
func (e *Engine) NextPaymentDue(ctx context.Context, subID uint64) (due uint64, ok bool, err error) {
	sub, err := e.GetSubscription(ctx, subID)
	if err != nil {
		return 0, false, err
	}
	p, err := e.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return 0, false, err
	}
	due, ok = subscription.NextPaymentDue(sub.LastPaymentTime, p.Interval)
	return due, ok, nil
}

// ListPayments returns payment receipts, oldest first.
func (e *Engine) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var out []*payment.Payment
	err := e.read(func() error {
		var err error
		out, err = e.store.ListPayments(ctx, opts)
		if err != nil {
			return storeErr("list payments", err)
		}
		return nil
	})
	return out, err
}
