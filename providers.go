package escrow

import (
	"context"
	"errors"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/types"
)

// MaxProviderNameLen is the longest accepted provider name, in bytes.
const MaxProviderNameLen = 100

// RegisterProvider adds the caller to the provider registry. The name is
// published in the ProviderRegistered event and not stored.
func (e *Engine) RegisterProvider(ctx context.Context, call host.Call, name string) error {
	return e.execute(ctx, "register_provider", call, func(c *callContext) error {
		if len(name) > MaxProviderNameLen {
			return ErrNameTooLong
		}

		registered, err := isRegistered(c.ctx, c.tx, call.Caller)
		if err != nil {
			return err
		}
		if registered {
			return ErrProviderAlreadyRegistered
		}

		p := &provider.Provider{
			Entity:       types.NewEntity(),
			Address:      call.Caller,
			Registered:   true,
			RegisteredAt: c.now,
		}
		if err := c.tx.SaveProvider(c.ctx, p); err != nil {
			return storeErr("save provider", err)
		}

		c.emit(&event.ProviderRegistered{Provider: call.Caller, Name: name})
		return nil
	})
}

// IsProviderRegistered reports whether addr may create plans.
func (e *Engine) IsProviderRegistered(ctx context.Context, addr types.Address) (bool, error) {
	var registered bool
	err := e.read(func() error {
		var err error
		registered, err = isRegistered(ctx, e.store, addr)
		return err
	})
	return registered, err
}

// ListProviders returns registered providers ordered by address.
func (e *Engine) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var out []*provider.Provider
	err := e.read(func() error {
		var err error
		out, err = e.store.ListProviders(ctx, opts)
		if err != nil {
			return storeErr("list providers", err)
		}
		return nil
	})
	return out, err
}

func isRegistered(ctx context.Context, s provider.Store, addr types.Address) (bool, error) {
	p, err := s.GetProvider(ctx, addr)
	if errors.Is(err, ErrProviderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("get provider", err)
	}
	return p.Registered, nil
}
