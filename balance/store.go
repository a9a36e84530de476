package balance

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store persists balances. GetBalance returns zero for unknown addresses.
type Store interface {
	GetBalance(ctx context.Context, addr types.Address) (types.Amount, error)
	SetBalance(ctx context.Context, addr types.Address, amount types.Amount) error
	ListBalances(ctx context.Context) ([]*Balance, error)
}
