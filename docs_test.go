package escrow_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/host/sim"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/types"
)

// TestDocumentationExamples verifies that the README walkthrough compiles and runs.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Simulated chain: custody account, wallets and a settable clock
		chain := sim.New(sim.WithTime(1_700_000_000))

		e := escrow.New(store, chain,
			escrow.WithLogger(slog.Default()),
			escrow.WithCrankSchedule("@every 1m"),
		)

		ctx := context.Background()
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		admin := types.MustParseAddress("0x0000000000000000000000000000000000000001")
		acme := types.MustParseAddress("0x0000000000000000000000000000000000000002")
		user := types.MustParseAddress("0x0000000000000000000000000000000000000003")
		chain.Fund(user, types.NewAmount(10_000))

		if err := e.Initialize(ctx, host.Call{Caller: admin}); err != nil {
			t.Fatal(err)
		}

		// Providers register once, then publish plans
		if err := e.RegisterProvider(ctx, host.Call{Caller: acme}, "Acme Streaming"); err != nil {
			t.Fatal(err)
		}
		planID, err := e.CreatePlan(ctx, host.Call{Caller: acme}, types.NewAmount(1000), 30*86400, "ipfs://acme-monthly")
		if err != nil {
			t.Fatal(err)
		}

		// Fund and subscribe in one call; the first period is charged at once
		var subID uint64
		err = chain.Invoke(ctx, user, types.NewAmount(3000), func(ctx context.Context, call host.Call) error {
			subID, err = e.Subscribe(ctx, call, planID)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}

		bal, err := e.GetUserBalance(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("subscription %d active, escrow balance %s\n", subID, bal)

		// A month later anyone may take the renewal
		chain.Advance(30 * 86400)
		if err := e.ProcessSubscriptionPayment(ctx, host.Call{Caller: user}, subID); err != nil {
			t.Fatal(err)
		}

		// Withdraw what is left
		if err := e.Withdraw(ctx, host.Call{Caller: user}, types.NewAmount(1000)); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		_ = types.NewAmount(1000)
		_ = types.MustParseAmount("1000000000000000000") // 1 ether in wei
		_ = types.MaxAmount()

		// Checked arithmetic
		a := types.NewAmount(100)
		b := types.NewAmount(200)
		if _, err := a.Add(b); err != nil {
			t.Fatal(err)
		}
		if _, err := a.Sub(b); err == nil {
			t.Fatal("expected underflow")
		}

		// Fee split at the default 2.5%
		fee, net, err := escrow.SplitPayment(types.NewAmount(1000), 250)
		if err != nil {
			t.Fatal(err)
		}
		_ = fee.String() // "25"
		_ = net.String() // "975"
	})
}
