package journal

import "context"

type Store interface {
	AppendEntries(ctx context.Context, entries []*Entry) error
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
}

// ListOpts selects entries with Seq > AfterSeq in ascending order. An empty
// Name matches every event.
type ListOpts struct {
	AfterSeq uint64
	Name     string
	Limit    int
}
