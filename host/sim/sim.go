// Package sim provides an in-process host: account wallets, an escrow custody
// account, a settable clock and injectable transfer failures.
//
// Chain mirrors how value moves on a real chain. Value attached to a call is
// taken from the caller's wallet into custody before the operation runs and
// handed back if the operation fails, so a failed call never moves value.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/types"
)

// ErrInsufficientWallet is returned by Invoke when the caller cannot cover
// the value they attach.
var ErrInsufficientWallet = errors.New("sim: insufficient wallet balance")

// DefaultCustody is the address that holds escrowed value unless overridden.
var DefaultCustody = types.MustParseAddress("0x000000000000000000000000000000000000e5c0")

// Chain is a simulated host. The zero value is not usable; call New.
type Chain struct {
	mu       sync.Mutex
	now      uint64
	custody  types.Address
	wallets  map[types.Address]types.Amount
	rejected map[types.Address]bool
}

var _ host.Host = (*Chain)(nil)

// Option configures a Chain.
type Option func(*Chain)

// WithTime sets the starting clock.
func WithTime(now uint64) Option {
	return func(c *Chain) { c.now = now }
}

// WithCustody overrides the custody address.
func WithCustody(addr types.Address) Option {
	return func(c *Chain) { c.custody = addr }
}

// New creates a Chain starting at time 1.
func New(opts ...Option) *Chain {
	c := &Chain{
		now:      1,
		custody:  DefaultCustody,
		wallets:  make(map[types.Address]types.Amount),
		rejected: make(map[types.Address]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now implements host.Host.
func (c *Chain) Now(context.Context) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Transfer implements host.Host. It moves value out of custody.
func (c *Chain) Transfer(_ context.Context, to types.Address, amount types.Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rejected[to] {
		return fmt.Errorf("%w: recipient %s rejected value", host.ErrTransferFailed, to.Hex())
	}
	return c.move(c.custody, to, amount)
}

// Invoke runs fn as a call from caller with value attached.
func (c *Chain) Invoke(ctx context.Context, caller types.Address, value types.Amount, fn func(context.Context, host.Call) error) error {
	c.mu.Lock()
	if err := c.move(caller, c.custody, value); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInsufficientWallet, caller.Hex())
	}
	c.mu.Unlock()

	err := fn(ctx, host.Call{Caller: caller, Value: value})
	if err == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if refundErr := c.move(c.custody, caller, value); refundErr != nil {
		return errors.Join(err, fmt.Errorf("sim: refund attached value: %w", refundErr))
	}
	return err
}

// Fund credits addr out of thin air.
func (c *Chain) Fund(addr types.Address, amount types.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.wallets[addr].Add(amount)
	if err != nil {
		panic(fmt.Sprintf("sim: fund %s: %v", addr.Hex(), err))
	}
	c.wallets[addr] = next
}

// BalanceOf returns the wallet balance of addr.
func (c *Chain) BalanceOf(addr types.Address) types.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallets[addr]
}

// Custody returns the custody address.
func (c *Chain) Custody() types.Address { return c.custody }

// CustodyBalance returns the value currently held in custody.
func (c *Chain) CustodyBalance() types.Amount { return c.BalanceOf(c.custody) }

// Advance moves the clock forward.
func (c *Chain) Advance(seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

// SetTime sets the clock. It refuses to go backwards.
func (c *Chain) SetTime(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now > c.now {
		c.now = now
	}
}

// RejectTransfersTo makes every transfer to addr fail.
func (c *Chain) RejectTransfersTo(addr types.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected[addr] = true
}

// AcceptTransfersTo undoes RejectTransfersTo.
func (c *Chain) AcceptTransfersTo(addr types.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rejected, addr)
}

// move must be called with c.mu held.
func (c *Chain) move(from, to types.Address, amount types.Amount) error {
	if amount.IsZero() {
		return nil
	}
	debited, err := c.wallets[from].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s, needs %s", host.ErrTransferFailed, from.Hex(), c.wallets[from], amount)
	}
	credited, err := c.wallets[to].Add(amount)
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrTransferFailed, err)
	}
	c.wallets[from] = debited
	c.wallets[to] = credited
	return nil
}
