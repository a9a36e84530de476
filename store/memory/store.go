// Package memory provides an in-memory implementation of store.Store.
//
// Records are held by value, so callers never share state with the store.
// Atomic scopes are serialized and implemented with a snapshot that is
// restored when the scope fails.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/balance"
	"github.com/xraph/escrow/journal"
	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Store is an in-memory store.Store.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data data
}

type data struct {
	state         protocol.State
	providers     map[types.Address]provider.Provider
	plans         map[uint64]plan.Plan
	subscriptions map[uint64]subscription.Subscription
	balances      map[types.Address]balance.Balance
	payments      []payment.Payment
	journal       []journal.Entry
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: data{
		providers:     make(map[types.Address]provider.Provider),
		plans:         make(map[uint64]plan.Plan),
		subscriptions: make(map[uint64]subscription.Subscription),
		balances:      make(map[types.Address]balance.Balance),
	}}
}

func (d *data) clone() data {
	return data{
		state:         d.state,
		providers:     cloneMap(d.providers),
		plans:         cloneMap(d.plans),
		subscriptions: cloneMap(d.subscriptions),
		balances:      cloneMap(d.balances),
		payments:      slices.Clone(d.payments),
		journal:       slices.Clone(d.journal),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ──────────────────────────────────────────────────
// Atomic scope
// ──────────────────────────────────────────────────

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, txStore{s}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the handle passed to an Atomic callback. Nested Atomic calls
// join the running scope.
type txStore struct {
	*Store
}

func (t txStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, t)
}

// ──────────────────────────────────────────────────
// Protocol state
// ──────────────────────────────────────────────────

func (s *Store) GetState(_ context.Context) (*protocol.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.data.state
	return &st, nil
}

func (s *Store) SaveState(_ context.Context, st *protocol.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.state = *st
	return nil
}

// ──────────────────────────────────────────────────
// Providers
// ──────────────────────────────────────────────────

func (s *Store) GetProvider(_ context.Context, addr types.Address) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.providers[addr]
	if !ok {
		return nil, escrow.ErrProviderNotFound
	}
	return &p, nil
}

func (s *Store) SaveProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.providers[p.Address] = *p
	return nil
}

func (s *Store) ListProviders(_ context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*provider.Provider, 0, len(s.data.providers))
	for _, p := range s.data.providers {
		result = append(result, &p)
	}
	slices.SortFunc(result, func(a, b *provider.Provider) int {
		return a.Address.Cmp(b.Address)
	})
	return limit(result, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Plans
// ──────────────────────────────────────────────────

func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.plans[p.ID]; exists {
		return escrow.ErrAlreadyExists
	}
	s.data.plans[p.ID] = *p
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID uint64) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.plans[planID]
	if !ok {
		return nil, escrow.ErrPlanNotFound
	}
	return &p, nil
}

func (s *Store) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*plan.Plan
	for _, p := range s.data.plans {
		if p.ID <= opts.AfterID {
			continue
		}
		if !types.IsZeroAddress(opts.Provider) && p.Provider != opts.Provider {
			continue
		}
		result = append(result, &p)
	}
	slices.SortFunc(result, func(a, b *plan.Plan) int { return cmp.Compare(a.ID, b.ID) })
	return limit(result, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.subscriptions[sub.ID]; exists {
		return escrow.ErrAlreadyExists
	}
	s.data.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID uint64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.data.subscriptions[subID]
	if !ok {
		return nil, escrow.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.subscriptions[sub.ID]; !exists {
		return escrow.ErrSubscriptionNotFound
	}
	s.data.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, subID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.subscriptions, subID)
	return nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.data.subscriptions {
		if sub.ID <= opts.AfterID {
			continue
		}
		if !types.IsZeroAddress(opts.Subscriber) && sub.Subscriber != opts.Subscriber {
			continue
		}
		if opts.PlanID != 0 && sub.PlanID != opts.PlanID {
			continue
		}
		if opts.Active != nil && sub.Active != *opts.Active {
			continue
		}
		result = append(result, &sub)
	}
	slices.SortFunc(result, func(a, b *subscription.Subscription) int { return cmp.Compare(a.ID, b.ID) })
	return limit(result, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(_ context.Context, addr types.Address) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.balances[addr].Amount, nil
}

func (s *Store) SetBalance(_ context.Context, addr types.Address, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data.balances[addr]
	if !ok {
		b = balance.Balance{Entity: types.NewEntity(), Address: addr}
	} else {
		b.Touch()
	}
	b.Amount = amount
	s.data.balances[addr] = b
	return nil
}

func (s *Store) ListBalances(_ context.Context) ([]*balance.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*balance.Balance, 0, len(s.data.balances))
	for _, b := range s.data.balances {
		result = append(result, &b)
	}
	slices.SortFunc(result, func(a, b *balance.Balance) int {
		return a.Address.Cmp(b.Address)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.payments = append(s.data.payments, *p)
	return nil
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*payment.Payment
	for _, p := range s.data.payments {
		if opts.SubscriptionID != 0 && p.SubscriptionID != opts.SubscriptionID {
			continue
		}
		if opts.PlanID != 0 && p.PlanID != opts.PlanID {
			continue
		}
		if !types.IsZeroAddress(opts.From) && p.From != opts.From {
			continue
		}
		if !types.IsZeroAddress(opts.To) && p.To != opts.To {
			continue
		}
		result = append(result, &p)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	return limit(result, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

func (s *Store) AppendEntries(_ context.Context, entries []*journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.data.journal = append(s.data.journal, *e)
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*journal.Entry
	for _, e := range s.data.journal {
		if e.Seq <= opts.AfterSeq {
			continue
		}
		if opts.Name != "" && e.Name != opts.Name {
			continue
		}
		result = append(result, &e)
	}
	return limit(result, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
