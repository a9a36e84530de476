package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/sqlite"
	"github.com/xraph/escrow/store/storetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:escrow-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	s, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}
