package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/types"
)

type depositCounter struct {
	name     string
	deposits int
	fail     bool
}

func (d *depositCounter) Name() string { return d.name }

func (d *depositCounter) OnEscrowDeposit(context.Context, *event.EscrowDeposit) error {
	d.deposits++
	if d.fail {
		return errors.New("boom")
	}
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnCallFailed(context.Context, string, types.Address, error) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegister(t *testing.T) {
	r := newRegistry()

	if err := r.Register(&depositCounter{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&depositCounter{name: "a"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := r.Register(&depositCounter{name: "b"}); err != nil {
		t.Fatal(err)
	}

	if r.Count() != 2 {
		t.Errorf("Count: got %d, want 2", r.Count())
	}
	if r.Get("b") == nil {
		t.Error("Get(b): got nil")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing): expected nil")
	}
}

func TestEmitRoutesByEventType(t *testing.T) {
	r := newRegistry()
	failing := &depositCounter{name: "failing", fail: true}
	healthy := &depositCounter{name: "healthy"}
	_ = r.Register(failing)
	_ = r.Register(healthy)

	ctx := context.Background()
	r.Emit(ctx, &event.EscrowDeposit{Amount: types.NewAmount(1)})
	r.Emit(ctx, &event.EscrowWithdrawal{Amount: types.NewAmount(1)})

	if failing.deposits != 1 {
		t.Errorf("failing deposits: got %d, want 1", failing.deposits)
	}
	if healthy.deposits != 1 {
		t.Errorf("healthy deposits: got %d, want 1 (a failing plugin must not stop dispatch)", healthy.deposits)
	}
}

func TestHookTimeout(t *testing.T) {
	r := newRegistry().WithTimeout(10 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	done := make(chan struct{})
	go func() {
		r.EmitCallFailed(context.Background(), "withdraw", types.ZeroAddress, errors.New("x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitCallFailed did not return after the hook timed out")
	}
}
