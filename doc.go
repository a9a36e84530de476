// Package escrow provides a subscription-billing escrow ledger for Go
// applications.
//
// Providers register and publish recurring-payment plans. Subscribers keep a
// pre-funded escrow balance that is debited on a fixed interval to pay the
// provider, net of a protocol fee. Escrow is a library, not a service: it
// runs inside your process on top of a host (who is calling, what value they
// attached, what time it is, how value leaves custody) and a store.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/escrow"
//	    "github.com/xraph/escrow/host/sim"
//	    "github.com/xraph/escrow/store/memory"
//	)
//
//	chain := sim.New()
//	e := escrow.New(memory.New(), chain,
//	    escrow.WithCrankSchedule("@every 1m"),
//	)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	_ = e.Initialize(ctx, host.Call{Caller: admin})
//
// # Core Concepts
//
// Providers join the registry once and then publish plans:
//
//	_ = e.RegisterProvider(ctx, host.Call{Caller: provider}, "Acme")
//	planID, err := e.CreatePlan(ctx, host.Call{Caller: provider},
//	    types.NewAmount(1000), 86400, "ipfs://plan-metadata")
//
// Subscribing takes the first charge immediately. Value attached to the
// call is credited to the subscriber's escrow balance first:
//
//	subID, err := e.Subscribe(ctx, host.Call{Caller: user, Value: types.NewAmount(1000)}, planID)
//
// Renewals are permissionless. Anyone may call ProcessSubscriptionPayment
// once a charge is due, and the built-in crank does so on a schedule. A
// subscriber whose balance cannot cover a renewal is deactivated for good.
//
// # Fees
//
// Every charge is split with integer arithmetic only:
//
//	fee            = price * 250 / 10000   (truncated)
//	providerAmount = price - fee
//
// The fee stays in custody and is tracked in the protocol state.
//
// # Atomicity
//
// Each operation runs inside one store scope (a SQL transaction, a MongoDB
// session transaction, or a snapshot in memory). Either all of its writes
// and journal entries commit, or none do. Plugins only ever observe events of
// committed operations.
//
// # Errors
//
// Every rejected operation matches one of four kinds with errors.Is:
// ErrUnauthorized, ErrInvalidInput, ErrInsufficientFunds or ErrNotFound.
// KindOf classifies an error.
package escrow
