package escrow

import "github.com/xraph/escrow/id"

// ID identifies journal entries, payment receipts and crank runs.
type ID = id.ID

// Prefix identifies the record type encoded in an ID.
type Prefix = id.Prefix
