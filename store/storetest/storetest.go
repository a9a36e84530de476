// Package storetest is a conformance suite for store.Store implementations.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/journal"
	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

var (
	addrA = types.MustParseAddress("0x00000000000000000000000000000000000000aa")
	addrB = types.MustParseAddress("0x00000000000000000000000000000000000000bb")
	addrC = types.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

// Run runs the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ProtocolState", func(t *testing.T) { testProtocolState(t, newStore(t)) })
	t.Run("Providers", func(t *testing.T) { testProviders(t, newStore(t)) })
	t.Run("Plans", func(t *testing.T) { testPlans(t, newStore(t)) })
	t.Run("Subscriptions", func(t *testing.T) { testSubscriptions(t, newStore(t)) })
	t.Run("Balances", func(t *testing.T) { testBalances(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("Journal", func(t *testing.T) { testJournal(t, newStore(t)) })
	t.Run("AtomicCommit", func(t *testing.T) { testAtomicCommit(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
}

func testProtocolState(t *testing.T, s store.Store) {
	ctx := context.Background()

	st, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Initialized(), "empty store has no admin")

	st = &protocol.State{
		Entity:             types.NewEntity(),
		Admin:              addrA,
		FeeBps:             protocol.DefaultFeeBps,
		NextPlanID:         4,
		NextSubscriptionID: 9,
		NextEventSeq:       12,
		FeesAccrued:        types.MustParseAmount("340282366920938463463374607431768211456"),
		InitializedAt:      1_700_000_000,
	}
	require.NoError(t, s.SaveState(ctx, st))

	st.NextPlanID = 5
	require.NoError(t, s.SaveState(ctx, st))

	got, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, addrA, got.Admin)
	assert.Equal(t, protocol.DefaultFeeBps, got.FeeBps)
	assert.Equal(t, uint64(5), got.NextPlanID)
	assert.Equal(t, uint64(9), got.NextSubscriptionID)
	assert.Equal(t, uint64(12), got.NextEventSeq)
	assert.Equal(t, st.FeesAccrued.String(), got.FeesAccrued.String(), "amounts beyond 64 bits survive")
	assert.Equal(t, uint64(1_700_000_000), got.InitializedAt)
}

func testProviders(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetProvider(ctx, addrA)
	require.ErrorIs(t, err, escrow.ErrProviderNotFound)

	for _, addr := range []types.Address{addrC, addrA, addrB} {
		require.NoError(t, s.SaveProvider(ctx, &provider.Provider{
			Entity:       types.NewEntity(),
			Address:      addr,
			Registered:   true,
			RegisteredAt: 100,
		}))
	}

	got, err := s.GetProvider(ctx, addrB)
	require.NoError(t, err)
	assert.Equal(t, addrB, got.Address)
	assert.True(t, got.Registered)
	assert.Equal(t, uint64(100), got.RegisteredAt)

	list, err := s.ListProviders(ctx, provider.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, addrA, list[0].Address)
	assert.Equal(t, addrB, list[1].Address)
}

func testPlans(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetPlan(ctx, 1)
	require.ErrorIs(t, err, escrow.ErrNotFound)

	for i := uint64(1); i <= 5; i++ {
		owner := addrA
		if i%2 == 0 {
			owner = addrB
		}
		require.NoError(t, s.CreatePlan(ctx, &plan.Plan{
			Entity:      types.NewEntity(),
			ID:          i,
			Provider:    owner,
			Price:       types.NewAmount(i * 100),
			Interval:    86400,
			PublishedAt: 1000 + i,
		}))
	}

	got, err := s.GetPlan(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, addrA, got.Provider)
	assert.Equal(t, types.NewAmount(300).String(), got.Price.String())
	assert.Equal(t, uint64(86400), got.Interval)
	assert.Equal(t, uint64(1003), got.PublishedAt)

	page, err := s.ListPlans(ctx, plan.ListOpts{AfterID: 1, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4}, planIDs(page))

	mine, err := s.ListPlans(ctx, plan.ListOpts{Provider: addrB})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 4}, planIDs(mine))
}

func testSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetSubscription(ctx, 1)
	require.ErrorIs(t, err, escrow.ErrSubscriptionNotFound)

	subs := []*subscription.Subscription{
		{ID: 1, PlanID: 1, Subscriber: addrA, LastPaymentTime: 10, Active: true, StartedAt: 10},
		{ID: 2, PlanID: 2, Subscriber: addrB, LastPaymentTime: 20, Active: true, StartedAt: 20},
		{ID: 3, PlanID: 1, Subscriber: addrB, LastPaymentTime: 30, Active: true, StartedAt: 30},
	}
	for _, sub := range subs {
		sub.Entity = types.NewEntity()
		require.NoError(t, s.CreateSubscription(ctx, sub))
	}

	subs[1].Active = false
	subs[1].DeactivatedAt = 99
	require.NoError(t, s.UpdateSubscription(ctx, subs[1]))

	got, err := s.GetSubscription(ctx, 2)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, uint64(99), got.DeactivatedAt)
	assert.Equal(t, addrB, got.Subscriber)

	err = s.UpdateSubscription(ctx, &subscription.Subscription{ID: 42, Entity: types.NewEntity()})
	require.ErrorIs(t, err, escrow.ErrSubscriptionNotFound)

	active := true
	list, err := s.ListSubscriptions(ctx, subscription.ListOpts{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, subIDs(list))

	list, err = s.ListSubscriptions(ctx, subscription.ListOpts{Subscriber: addrB})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, subIDs(list))

	list, err = s.ListSubscriptions(ctx, subscription.ListOpts{PlanID: 1, AfterID: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, subIDs(list))

	list, err = s.ListSubscriptions(ctx, subscription.ListOpts{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, subIDs(list))

	require.NoError(t, s.DeleteSubscription(ctx, 3))
	_, err = s.GetSubscription(ctx, 3)
	require.ErrorIs(t, err, escrow.ErrSubscriptionNotFound)
}

func testBalances(t *testing.T, s store.Store) {
	ctx := context.Background()

	bal, err := s.GetBalance(ctx, addrA)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "unknown address has a zero balance")

	require.NoError(t, s.SetBalance(ctx, addrB, types.NewAmount(7)))
	require.NoError(t, s.SetBalance(ctx, addrA, types.NewAmount(5)))
	require.NoError(t, s.SetBalance(ctx, addrA, types.MaxAmount()))

	bal, err = s.GetBalance(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, types.MaxAmount().String(), bal.String())

	list, err := s.ListBalances(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, addrA, list[0].Address)
	assert.Equal(t, addrB, list[1].Address)
	assert.Equal(t, "7", list[1].Amount.String())
}

func testPayments(t *testing.T, s store.Store) {
	ctx := context.Background()

	var ids []id.PaymentID
	for i, sub := range []uint64{1, 2, 1} {
		p := &payment.Payment{
			Entity:         types.NewEntity(),
			ID:             id.NewPaymentID(),
			SubscriptionID: sub,
			PlanID:         sub,
			From:           addrA,
			To:             addrB,
			Price:          types.NewAmount(1000),
			ProtocolFee:    types.NewAmount(25),
			ProviderAmount: types.NewAmount(975),
			PaidAt:         uint64(100 + i),
			Kind:           payment.KindRecurring,
		}
		require.NoError(t, s.CreatePayment(ctx, p))
		ids = append(ids, p.ID)
	}

	list, err := s.ListPayments(ctx, payment.ListOpts{SubscriptionID: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[0].String(), list[0].ID.String())
	assert.Equal(t, ids[2].String(), list[1].ID.String())
	assert.Equal(t, "975", list[0].ProviderAmount.String())
	assert.Equal(t, payment.KindRecurring, list[0].Kind)

	list, err = s.ListPayments(ctx, payment.ListOpts{To: addrB, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(101), list[0].PaidAt)

	list, err = s.ListPayments(ctx, payment.ListOpts{PlanID: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[1].String(), list[0].ID.String())

	list, err = s.ListPayments(ctx, payment.ListOpts{From: addrC})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testJournal(t *testing.T, s store.Store) {
	ctx := context.Background()

	entries := []*journal.Entry{
		{ID: id.NewEventID(), Seq: 1, Name: "EscrowDeposit", Topic: "0x01", Payload: json.RawMessage(`{"amount":"1"}`), Timestamp: 5},
		{ID: id.NewEventID(), Seq: 2, Name: "EscrowWithdrawal", Topic: "0x02", Payload: json.RawMessage(`{"amount":"1"}`), Timestamp: 5},
		{ID: id.NewEventID(), Seq: 3, Name: "EscrowDeposit", Topic: "0x01", Payload: json.RawMessage(`{"amount":"2"}`), Timestamp: 6},
	}
	require.NoError(t, s.AppendEntries(ctx, entries))
	require.NoError(t, s.AppendEntries(ctx, nil))

	all, err := s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, entries[i].ID.String(), e.ID.String())
	}
	assert.JSONEq(t, `{"amount":"2"}`, string(all[2].Payload))

	deposits, err := s.ListEntries(ctx, journal.ListOpts{Name: "EscrowDeposit", AfterSeq: 1})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, uint64(3), deposits[0].Seq)

	limited, err := s.ListEntries(ctx, journal.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testAtomicCommit(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.SetBalance(ctx, addrA, types.NewAmount(10)); err != nil {
			return err
		}
		// Nested scopes join the outer one.
		return tx.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
			return tx.SetBalance(ctx, addrB, types.NewAmount(20))
		})
	})
	require.NoError(t, err)

	a, err := s.GetBalance(ctx, addrA)
	require.NoError(t, err)
	b, err := s.GetBalance(ctx, addrB)
	require.NoError(t, err)
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "20", b.String())
}

func testAtomicRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SetBalance(ctx, addrA, types.NewAmount(1)))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.SetBalance(ctx, addrA, types.NewAmount(999)); err != nil {
			return err
		}
		if err := tx.CreateSubscription(ctx, &subscription.Subscription{
			Entity: types.NewEntity(), ID: 1, PlanID: 1, Subscriber: addrA, Active: true,
		}); err != nil {
			return err
		}
		if err := tx.SaveState(ctx, &protocol.State{Entity: types.NewEntity(), Admin: addrA}); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, []*journal.Entry{
			{ID: id.NewEventID(), Seq: 1, Name: "EscrowDeposit", Topic: "0x01", Payload: json.RawMessage(`{}`)},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := s.GetBalance(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, "1", bal.String())

	_, err = s.GetSubscription(ctx, 1)
	require.ErrorIs(t, err, escrow.ErrSubscriptionNotFound)

	st, err := s.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Initialized())

	entries, err := s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func planIDs(plans []*plan.Plan) []uint64 {
	out := make([]uint64, len(plans))
	for i, p := range plans {
		out[i] = p.ID
	}
	return out
}

func subIDs(subs []*subscription.Subscription) []uint64 {
	out := make([]uint64, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}
