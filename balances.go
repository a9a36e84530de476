package escrow

import (
	"context"
	"fmt"

	"github.com/xraph/escrow/balance"
	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/types"
)

// Deposit credits the value attached to the call to the caller's escrow
// balance.
func (e *Engine) Deposit(ctx context.Context, call host.Call) error {
	return e.executePayable(ctx, "deposit", call, func(c *callContext) error {
		if call.Value.IsZero() {
			return ErrZeroDeposit
		}

		bal, err := c.tx.GetBalance(c.ctx, call.Caller)
		if err != nil {
			return storeErr("get balance", err)
		}
		next, err := bal.Add(call.Value)
		if err != nil {
			return ErrAmountOverflow
		}
		if err := c.tx.SetBalance(c.ctx, call.Caller, next); err != nil {
			return storeErr("credit balance", err)
		}

		c.emit(&event.EscrowDeposit{User: call.Caller, Amount: call.Value, NewBalance: next})
		return nil
	})
}

// Withdraw pays amount out of the caller's escrow balance to the caller.
func (e *Engine) Withdraw(ctx context.Context, call host.Call, amount types.Amount) error {
	return e.execute(ctx, "withdraw", call, func(c *callContext) error {
		if amount.IsZero() {
			return ErrInvalidWithdrawAmount
		}

		bal, err := c.tx.GetBalance(c.ctx, call.Caller)
		if err != nil {
			return storeErr("get balance", err)
		}
		next, err := bal.Sub(amount)
		if err != nil {
			return ErrInsufficientBalance
		}
		if err := c.tx.SetBalance(c.ctx, call.Caller, next); err != nil {
			return storeErr("debit balance", err)
		}

		if err := e.host.Transfer(c.ctx, call.Caller, amount); err != nil {
			if restoreErr := c.tx.SetBalance(c.ctx, call.Caller, bal); restoreErr != nil {
				return storeErr("restore balance", restoreErr)
			}
			return fmt.Errorf("%w: withdraw to %s: %w", ErrTransferFailed, call.Caller.Hex(), err)
		}

		c.emit(&event.EscrowWithdrawal{User: call.Caller, Amount: amount, NewBalance: next})
		return nil
	})
}

// GetUserBalance returns the escrow balance of addr, zero if it never
// deposited.
func (e *Engine) GetUserBalance(ctx context.Context, addr types.Address) (types.Amount, error) {
	var bal types.Amount
	err := e.read(func() error {
		var err error
		bal, err = e.store.GetBalance(ctx, addr)
		if err != nil {
			return storeErr("get balance", err)
		}
		return nil
	})
	return bal, err
}

// ListBalances returns every recorded escrow balance.
func (e *Engine) ListBalances(ctx context.Context) ([]*balance.Balance, error) {
	var out []*balance.Balance
	err := e.read(func() error {
		var err error
		out, err = e.store.ListBalances(ctx)
		if err != nil {
			return storeErr("list balances", err)
		}
		return nil
	})
	return out, err
}

// Liabilities returns what custody must hold to honor every balance and the
// retained protocol fees.
func (e *Engine) Liabilities(ctx context.Context) (types.Amount, error) {
	var total types.Amount
	err := e.read(func() error {
		balances, err := e.store.ListBalances(ctx)
		if err != nil {
			return storeErr("list balances", err)
		}
		st, err := e.store.GetState(ctx)
		if err != nil {
			return storeErr("protocol state", err)
		}
		amounts := make([]types.Amount, 0, len(balances)+1)
		for _, b := range balances {
			amounts = append(amounts, b.Amount)
		}
		amounts = append(amounts, st.FeesAccrued)
		total, err = types.Sum(amounts...)
		return err
	})
	return total, err
}
