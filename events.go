package escrow

import (
	"context"

	"github.com/xraph/escrow/journal"
)

// ListEvents reads the event journal in emission order.
func (e *Engine) ListEvents(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var out []*journal.Entry
	err := e.read(func() error {
		var err error
		out, err = e.store.ListEntries(ctx, opts)
		if err != nil {
			return storeErr("list events", err)
		}
		return nil
	})
	return out, err
}
