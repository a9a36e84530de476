package escrow

import (
	"context"

	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/types"
)

// Initialize makes the caller the admin, starts both id counters at 1 and
// sets the protocol fee to 250 basis points. It succeeds once, and the zero
// address cannot become admin.
func (e *Engine) Initialize(ctx context.Context, call host.Call) error {
	var feeBps uint64
	err := e.run(ctx, "initialize", call, false, func(c *callContext) error {
		if c.state.Initialized() {
			return ErrAlreadyInitialized
		}
		if types.IsZeroAddress(call.Caller) {
			return ErrZeroAdmin
		}

		c.state.Admin = call.Caller
		c.state.FeeBps = protocol.DefaultFeeBps
		c.state.NextPlanID = 1
		c.state.NextSubscriptionID = 1
		if c.state.NextEventSeq == 0 {
			c.state.NextEventSeq = 1
		}
		c.state.InitializedAt = c.now
		c.touchState()
		feeBps = c.state.FeeBps
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("escrow initialized",
		"admin", call.Caller.Hex(),
		"fee_bps", feeBps,
	)
	return nil
}

// ProtocolState returns a copy of the protocol record. Before initialization
// every field is zero.
func (e *Engine) ProtocolState(ctx context.Context) (*protocol.State, error) {
	var st *protocol.State
	err := e.read(func() error {
		var err error
		st, err = e.store.GetState(ctx)
		if err != nil {
			return storeErr("protocol state", err)
		}
		return nil
	})
	return st, err
}
