// Package balance models per-address escrow balances.
package balance

import "github.com/xraph/escrow/types"

// Balance is the escrowed amount held for one address. Addresses that never
// deposited have an implicit zero balance and no record.
type Balance struct {
	types.Entity
	Address types.Address `json:"address"`
	Amount  types.Amount  `json:"amount"`
}
