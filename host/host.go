// Package host describes the execution environment the escrow runs in.
//
// The host identifies the caller of each operation, supplies the value they
// attached, reports the current time, and moves value out of the escrow's
// custody. Persistence is supplied separately through store.Store.
package host

import (
	"context"
	"errors"

	"github.com/xraph/escrow/types"
)

// ErrTransferFailed is returned by Host.Transfer when the recipient rejected
// the value. A failed transfer moves nothing.
var ErrTransferFailed = errors.New("host: transfer failed")

// Call carries the identity and attached value of the current invocation.
type Call struct {
	Caller types.Address
	Value  types.Amount
}

// Host is the environment the engine delegates time and value movement to.
type Host interface {
	// Now returns the current host time in seconds. It never decreases.
	Now(ctx context.Context) uint64

	// Transfer sends amount from escrow custody to the given address. It
	// either succeeds completely or returns an error and moves nothing.
	Transfer(ctx context.Context, to types.Address, amount types.Amount) error
}
