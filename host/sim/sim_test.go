package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/types"
)

var (
	alice = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob   = types.MustParseAddress("0x00000000000000000000000000000000000000b0")
)

func TestInvokeMovesValueIntoCustody(t *testing.T) {
	c := New()
	c.Fund(alice, types.NewAmount(100))

	err := c.Invoke(context.Background(), alice, types.NewAmount(40), func(_ context.Context, call host.Call) error {
		if call.Caller != alice {
			t.Errorf("caller: got %s, want alice", call.Caller.Hex())
		}
		if !call.Value.Equal(types.NewAmount(40)) {
			t.Errorf("value: got %s, want 40", call.Value)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := c.BalanceOf(alice); !got.Equal(types.NewAmount(60)) {
		t.Errorf("alice: got %s, want 60", got)
	}
	if got := c.CustodyBalance(); !got.Equal(types.NewAmount(40)) {
		t.Errorf("custody: got %s, want 40", got)
	}
}

func TestInvokeRefundsOnFailure(t *testing.T) {
	c := New()
	c.Fund(alice, types.NewAmount(100))
	boom := errors.New("boom")

	err := c.Invoke(context.Background(), alice, types.NewAmount(40), func(context.Context, host.Call) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if got := c.BalanceOf(alice); !got.Equal(types.NewAmount(100)) {
		t.Errorf("alice: got %s, want 100", got)
	}
	if !c.CustodyBalance().IsZero() {
		t.Errorf("custody: got %s, want 0", c.CustodyBalance())
	}
}

func TestInvokeInsufficientWallet(t *testing.T) {
	c := New()
	called := false
	err := c.Invoke(context.Background(), alice, types.NewAmount(1), func(context.Context, host.Call) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrInsufficientWallet) {
		t.Fatalf("got %v, want ErrInsufficientWallet", err)
	}
	if called {
		t.Error("fn should not run without funds")
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Fund(c.Custody(), types.NewAmount(10))

	if err := c.Transfer(ctx, bob, types.NewAmount(4)); err != nil {
		t.Fatal(err)
	}
	if got := c.BalanceOf(bob); !got.Equal(types.NewAmount(4)) {
		t.Errorf("bob: got %s, want 4", got)
	}

	c.RejectTransfersTo(bob)
	if err := c.Transfer(ctx, bob, types.NewAmount(1)); !errors.Is(err, host.ErrTransferFailed) {
		t.Errorf("rejected: got %v, want ErrTransferFailed", err)
	}
	c.AcceptTransfersTo(bob)

	if err := c.Transfer(ctx, bob, types.NewAmount(100)); !errors.Is(err, host.ErrTransferFailed) {
		t.Errorf("overdraw: got %v, want ErrTransferFailed", err)
	}
	if got := c.CustodyBalance(); !got.Equal(types.NewAmount(6)) {
		t.Errorf("custody: got %s, want 6", got)
	}
}

func TestClock(t *testing.T) {
	c := New(WithTime(1000))
	ctx := context.Background()

	c.Advance(86400)
	if got := c.Now(ctx); got != 87400 {
		t.Errorf("Advance: got %d, want 87400", got)
	}
	c.SetTime(5)
	if got := c.Now(ctx); got != 87400 {
		t.Errorf("SetTime backwards: got %d, want 87400", got)
	}
}
