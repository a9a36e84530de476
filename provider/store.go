package provider

import (
	"context"

	"github.com/xraph/escrow/types"
)

// Store persists providers keyed by address. GetProvider returns
// escrow.ErrProviderNotFound for unknown addresses.
type Store interface {
	GetProvider(ctx context.Context, addr types.Address) (*Provider, error)
	SaveProvider(ctx context.Context, p *Provider) error
	ListProviders(ctx context.Context, opts ListOpts) ([]*Provider, error)
}

// ListOpts pages providers by address.
type ListOpts struct {
	Limit int
}
