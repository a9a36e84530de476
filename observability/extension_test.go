package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/observability"
	"github.com/xraph/escrow/types"
)

func TestMetricsExtensionCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	ctx := context.Background()

	require.NoError(t, m.OnEscrowDeposit(ctx, &event.EscrowDeposit{Amount: types.NewAmount(500)}))
	require.NoError(t, m.OnEscrowDeposit(ctx, &event.EscrowDeposit{Amount: types.NewAmount(300)}))
	require.NoError(t, m.OnProviderEarnings(ctx, &event.ProviderEarnings{Amount: types.NewAmount(975)}))
	require.NoError(t, m.OnCallFailed(ctx, "withdraw", types.ZeroAddress, escrow.ErrInsufficientBalance))
	require.NoError(t, m.OnCrankCompleted(ctx, 3, 1, 0, 20*time.Millisecond))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DepositCount.(prometheus.Counter)))
	assert.Equal(t, 975.0, testutil.ToFloat64(m.ProviderEarnings.(prometheus.Counter)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CrankProcessed.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CrankRuns.(prometheus.Counter)))

	n, err := testutil.GatherAndCount(reg, "escrow_call_failed_insufficient_funds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	a := f.Counter("escrow.plan.created")
	b := f.Counter("escrow.plan.created")
	a.Inc()
	b.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.(prometheus.Counter)))

	// A second factory on the same registry picks up the registered collector.
	c := observability.NewPrometheusFactory(reg).Counter("escrow.plan.created")
	c.Inc()
	assert.Equal(t, 3.0, testutil.ToFloat64(a.(prometheus.Counter)))
}
