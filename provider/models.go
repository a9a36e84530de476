// Package provider models the registry of addresses allowed to publish plans.
package provider

import "github.com/xraph/escrow/types"

// Provider is a registered service provider. Registration is permanent and the
// display name supplied at registration is only carried by the emitted event.
type Provider struct {
	types.Entity
	Address      types.Address `json:"address"`
	Registered   bool          `json:"registered"`
	RegisteredAt uint64        `json:"registered_at"`
}
