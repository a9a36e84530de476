// Package sqlstore implements store.Store on top of bun. It is dialect
// neutral: the sqlite and postgres packages open a database and build their
// stores from it.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

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

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using any database bun supports.
type Store struct {
	db   bun.IDB
	root *bun.DB
	inTx bool
}

// New creates a store on an open bun database.
func New(db *bun.DB) *Store {
	return &Store{db: db, root: db}
}

// DB returns the underlying bun database for direct access.
func (s *Store) DB() *bun.DB { return s.root }

// Atomic runs fn inside a database transaction. A store handed to fn by
// Atomic joins that transaction when Atomic is called on it again.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	var fnErr error
	err := s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		fnErr = fn(ctx, &Store{db: tx, root: s.root, inTx: true})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return fmt.Errorf("%w: %w", escrow.ErrTransactionFailed, err)
	}
	return err
}

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate(ctx, s.root, Migrations); err != nil {
		return fmt.Errorf("escrow/sqlstore: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.root.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.root.Close()
}

// ==================== Protocol Store ====================

func (s *Store) GetState(ctx context.Context) (*protocol.State, error) {
	rec := new(stateRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", stateRowID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &protocol.State{}, nil
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (s *Store) SaveState(ctx context.Context, st *protocol.State) error {
	_, err := s.db.NewInsert().
		Model(newStateRecord(st)).
		On("CONFLICT (id) DO UPDATE").
		Set("admin = EXCLUDED.admin").
		Set("fee_bps = EXCLUDED.fee_bps").
		Set("next_plan_id = EXCLUDED.next_plan_id").
		Set("next_subscription_id = EXCLUDED.next_subscription_id").
		Set("next_event_seq = EXCLUDED.next_event_seq").
		Set("fees_accrued = EXCLUDED.fees_accrued").
		Set("initialized_at = EXCLUDED.initialized_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Provider Store ====================

func (s *Store) GetProvider(ctx context.Context, addr types.Address) (*provider.Provider, error) {
	rec := new(providerRecord)
	err := s.db.NewSelect().Model(rec).Where("address = ?", addrKey(addr)).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (s *Store) SaveProvider(ctx context.Context, p *provider.Provider) error {
	_, err := s.db.NewInsert().
		Model(newProviderRecord(p)).
		On("CONFLICT (address) DO UPDATE").
		Set("registered = EXCLUDED.registered").
		Set("registered_at = EXCLUDED.registered_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var recs []providerRecord
	q := s.db.NewSelect().Model(&recs).Order("address ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*provider.Provider, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.db.NewInsert().Model(newPlanRecord(p)).Exec(ctx)
	return err
}

func (s *Store) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	rec := new(planRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", planID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrPlanNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var recs []planRecord
	q := s.db.NewSelect().Model(&recs).Where("id > ?", opts.AfterID)
	if !types.IsZeroAddress(opts.Provider) {
		q = q.Where("provider = ?", addrKey(opts.Provider))
	}
	q = q.Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*plan.Plan, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.db.NewInsert().Model(newSubscriptionRecord(sub)).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	rec := new(subscriptionRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", subID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.db.NewUpdate().
		Model(newSubscriptionRecord(sub)).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID uint64) error {
	_, err := s.db.NewDelete().
		Model((*subscriptionRecord)(nil)).
		Where("id = ?", subID).
		Exec(ctx)
	return err
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var recs []subscriptionRecord
	q := s.db.NewSelect().Model(&recs).Where("id > ?", opts.AfterID)
	if !types.IsZeroAddress(opts.Subscriber) {
		q = q.Where("subscriber = ?", addrKey(opts.Subscriber))
	}
	if opts.PlanID != 0 {
		q = q.Where("plan_id = ?", opts.PlanID)
	}
	if opts.Active != nil {
		q = q.Where("active = ?", *opts.Active)
	}
	q = q.Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*subscription.Subscription, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}

// ==================== Balance Store ====================

func (s *Store) GetBalance(ctx context.Context, addr types.Address) (types.Amount, error) {
	rec := new(balanceRecord)
	err := s.db.NewSelect().Model(rec).Where("address = ?", addrKey(addr)).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, err
	}
	return rec.Amount, nil
}

func (s *Store) SetBalance(ctx context.Context, addr types.Address, amount types.Amount) error {
	now := types.NewEntity()
	_, err := s.db.NewInsert().
		Model(&balanceRecord{
			Address:   addrKey(addr),
			Amount:    amount,
			CreatedAt: now.CreatedAt,
			UpdatedAt: now.UpdatedAt,
		}).
		On("CONFLICT (address) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListBalances(ctx context.Context) ([]*balance.Balance, error) {
	var recs []balanceRecord
	if err := s.db.NewSelect().Model(&recs).Order("address ASC").Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*balance.Balance, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.db.NewInsert().Model(newPaymentRecord(p)).Exec(ctx)
	return err
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var recs []paymentRecord
	q := s.db.NewSelect().Model(&recs)
	if opts.SubscriptionID != 0 {
		q = q.Where("subscription_id = ?", opts.SubscriptionID)
	}
	if opts.PlanID != 0 {
		q = q.Where("plan_id = ?", opts.PlanID)
	}
	if !types.IsZeroAddress(opts.From) {
		q = q.Where("from_address = ?", addrKey(opts.From))
	}
	if !types.IsZeroAddress(opts.To) {
		q = q.Where("to_address = ?", addrKey(opts.To))
	}
	q = q.Order("row_id ASC")
	// SQLite only accepts OFFSET after LIMIT.
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 && opts.Offset > 0 {
		if opts.Offset >= len(recs) {
			return nil, nil
		}
		recs = recs[opts.Offset:]
	}

	out := make([]*payment.Payment, 0, len(recs))
	for i := range recs {
		p, err := recs[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("escrow/sqlstore: payment %s: %w", recs[i].ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEntries(ctx context.Context, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	recs := make([]journalRecord, len(entries))
	for i, e := range entries {
		recs[i] = newJournalRecord(e)
	}
	_, err := s.db.NewInsert().Model(&recs).Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var recs []journalRecord
	q := s.db.NewSelect().Model(&recs).Where("seq > ?", opts.AfterSeq)
	if opts.Name != "" {
		q = q.Where("name = ?", opts.Name)
	}
	q = q.Order("seq ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*journal.Entry, 0, len(recs))
	for i := range recs {
		e, err := recs[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("escrow/sqlstore: journal entry %d: %w", recs[i].Seq, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// isNoRows checks for sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
