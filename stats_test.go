package escrow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
)

func TestStats(t *testing.T) {
	eachBackend(t, func(t *testing.T, f *fixture) {
		f.initialize()
		f.registerProvider(provider)
		f.registerProvider(other)
		monthly := f.createPlan(provider, 1000, day)
		unused := f.createPlan(provider, 40, day)
		small := f.createPlan(other, 200, day)

		aliceSub, err := f.subscribe(alice, 1000, monthly)
		require.NoError(t, err)
		bobSub, err := f.subscribe(bob, 3000, monthly)
		require.NoError(t, err)
		_, err = f.subscribe(bob, 0, small)
		require.NoError(t, err)

		f.chain.Advance(day)
		require.NoError(t, f.charge(bobSub))
		require.ErrorIs(t, f.charge(aliceSub), escrow.ErrInsufficientFunds)

		ps, err := f.engine.ProviderStats(f.ctx, provider)
		require.NoError(t, err)
		assert.True(t, ps.Registered)
		assert.Equal(t, uint64(2), ps.TotalPlans)
		assert.Equal(t, uint64(2), ps.TotalSubscriptions)
		assert.Equal(t, uint64(1), ps.ActiveSubscriptions)
		assert.Equal(t, uint64(3), ps.Payments)
		assert.Equal(t, amt(3000), ps.Revenue)
		assert.Equal(t, amt(2925), ps.Earnings)
		assert.Equal(t, amt(75), ps.Fees)

		monthlyStats, err := f.engine.PlanStats(f.ctx, monthly)
		require.NoError(t, err)
		assert.Equal(t, provider, monthlyStats.Provider)
		assert.Equal(t, uint64(2), monthlyStats.TotalSubscriptions)
		assert.Equal(t, uint64(1), monthlyStats.ActiveSubscriptions)
		assert.Equal(t, amt(3000), monthlyStats.Revenue)

		unusedStats, err := f.engine.PlanStats(f.ctx, unused)
		require.NoError(t, err)
		assert.Zero(t, unusedStats.TotalSubscriptions)
		assert.True(t, unusedStats.Revenue.IsZero())

		smallStats, err := f.engine.PlanStats(f.ctx, small)
		require.NoError(t, err)
		assert.Equal(t, amt(195), smallStats.Earnings)
		assert.Equal(t, amt(5), smallStats.Fees)

		bobStats, err := f.engine.SubscriptionStats(f.ctx, bobSub)
		require.NoError(t, err)
		assert.True(t, bobStats.Active)
		assert.Equal(t, uint64(2), bobStats.Payments)
		assert.Equal(t, amt(2000), bobStats.Revenue)

		aliceStats, err := f.engine.SubscriptionStats(f.ctx, aliceSub)
		require.NoError(t, err)
		assert.False(t, aliceStats.Active)
		assert.Equal(t, amt(1000), aliceStats.Revenue)

		gs, err := f.engine.GlobalStats(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), gs.TotalProviders)
		assert.Equal(t, uint64(3), gs.TotalPlans)
		assert.Equal(t, uint64(3), gs.TotalSubscriptions)
		assert.Equal(t, uint64(2), gs.ActiveSubscriptions)
		assert.Equal(t, uint64(4), gs.Payments)
		assert.Equal(t, amt(3200), gs.Revenue)
		assert.Equal(t, amt(3120), gs.Earnings)
		assert.Equal(t, amt(800), gs.Escrowed)

		st, err := f.engine.ProtocolState(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, st.FeesAccrued, gs.Fees, "receipt fees match what the protocol accrued")
	})
}

func TestStatsUnknownRecords(t *testing.T) {
	f := newFixture(t)
	f.initialize()

	ps, err := f.engine.ProviderStats(f.ctx, bob)
	require.NoError(t, err)
	assert.False(t, ps.Registered)
	assert.Zero(t, ps.TotalPlans)

	_, err = f.engine.PlanStats(f.ctx, 42)
	require.ErrorIs(t, err, escrow.ErrNotFound)

	_, err = f.engine.SubscriptionStats(f.ctx, 42)
	require.ErrorIs(t, err, escrow.ErrNotFound)

	gs, err := f.engine.GlobalStats(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, gs.TotalSubscriptions)
	assert.True(t, gs.Revenue.IsZero())
}
