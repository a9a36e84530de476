package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/mongo"
	"github.com/xraph/escrow/store/storetest"
)

// The URI must point at a replica set: atomic scopes use transactions.
func TestConformance(t *testing.T) {
	uri := os.Getenv("ESCROW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ESCROW_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		name := fmt.Sprintf("escrow_test_%d", time.Now().UnixNano())
		s, err := mongo.Open(ctx, uri, name)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.DB().Drop(context.Background())
			_ = s.Close()
		})

		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
