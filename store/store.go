// Package store defines the aggregate persistence interface for Escrow.
package store

import (
	"context"

	"github.com/xraph/escrow/balance"
	"github.com/xraph/escrow/journal"
	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
)

// Store is the unified storage interface for all Escrow records.
type Store interface {
	protocol.Store
	provider.Store
	plan.Store
	subscription.Store
	balance.Store
	payment.Store
	journal.Store

	// Atomic runs fn inside a single atomic scope. Every write made through
	// tx becomes visible together when fn returns nil, and none of them do
	// when fn returns an error (which Atomic then returns). Calling Atomic on
	// tx joins the surrounding scope.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
