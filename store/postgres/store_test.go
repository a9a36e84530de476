package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/postgres"
	"github.com/xraph/escrow/store/storetest"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("ESCROW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ESCROW_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.Open(dsn, postgres.Options{MaxOpenConns: 4})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Migrate(ctx))
		_, err = s.DB().ExecContext(ctx, `TRUNCATE escrow_protocol, escrow_providers, escrow_plans,
			escrow_subscriptions, escrow_balances, escrow_payments, escrow_journal`)
		require.NoError(t, err)
		return s
	})
}
