// Package plan models the catalog of recurring-payment plans.
package plan

import (
	"github.com/xraph/escrow/types"
)

// Plan is an immutable offer from a provider: charge Price every Interval
// seconds. A plan whose Provider is the zero address does not exist.
type Plan struct {
	types.Entity
	ID          uint64        `json:"id"`
	Provider    types.Address `json:"provider"`
	Price       types.Amount  `json:"price"`
	Interval    uint64        `json:"interval"`
	PublishedAt uint64        `json:"published_at"`
}

// Exists reports whether p refers to a real plan.
func (p *Plan) Exists() bool {
	return p != nil && !types.IsZeroAddress(p.Provider)
}
