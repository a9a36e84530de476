package escrow

import (
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/types"
)

// Re-export common types for convenience so users don't have to import the
// types and host packages.

// Amount is re-exported from the types package.
type Amount = types.Amount

// Address is re-exported from the types package.
type Address = types.Address

// Entity is re-exported from the types package.
type Entity = types.Entity

// Call is re-exported from the host package.
type Call = host.Call

// Host is re-exported from the host package.
type Host = host.Host

// Re-export constructors.
var (
	NewAmount     = types.NewAmount
	ParseAmount   = types.ParseAmount
	ParseAddress  = types.ParseAddress
	IsZeroAddress = types.IsZeroAddress
	NewEntity     = types.NewEntity
	SumAmounts    = types.Sum
)
