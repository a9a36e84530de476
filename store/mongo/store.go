// Package mongo provides a MongoDB-backed store.Store.
//
// Atomic scopes use multi-document transactions, which MongoDB only offers on
// replica sets and sharded clusters.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

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

// Collection name constants.
const (
	colProtocol      = "escrow_protocol"
	colProviders     = "escrow_providers"
	colPlans         = "escrow_plans"
	colSubscriptions = "escrow_subscriptions"
	colBalances      = "escrow_balances"
	colPayments      = "escrow_payments"
	colJournal       = "escrow_journal"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

// New creates a store on database name of an open client.
func New(client *mongo.Client, name string) *Store {
	return &Store{client: client, db: client.Database(name)}
}

// Open connects to uri and returns a store on database name.
func Open(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("escrow/mongo: connect: %w", err)
	}
	s := New(client, name)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// Atomic runs fn inside a multi-document transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %w", escrow.ErrTransactionFailed, err)
	}
	defer sess.EndSession(ctx)

	tx := &Store{client: s.client, db: s.db, inTx: true}
	var fnErr error
	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		fnErr = fn(ctx, tx)
		return nil, fnErr
	})
	if err != nil && fnErr == nil {
		return fmt.Errorf("%w: %w", escrow.ErrTransactionFailed, err)
	}
	return err
}

// Migrate creates indexes for all escrow collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.col(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("escrow/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Protocol Store ====================

func (s *Store) GetState(ctx context.Context) (*protocol.State, error) {
	var m stateModel
	err := s.col(colProtocol).FindOne(ctx, bson.M{"_id": stateDocID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return &protocol.State{}, nil
		}
		return nil, err
	}
	return fromStateModel(&m)
}

func (s *Store) SaveState(ctx context.Context, st *protocol.State) error {
	_, err := s.col(colProtocol).ReplaceOne(ctx,
		bson.M{"_id": stateDocID},
		toStateModel(st),
		options.Replace().SetUpsert(true),
	)
	return err
}

// ==================== Provider Store ====================

func (s *Store) GetProvider(ctx context.Context, addr types.Address) (*provider.Provider, error) {
	var m providerModel
	err := s.col(colProviders).FindOne(ctx, bson.M{"_id": addrKey(addr)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, err
	}
	return fromProviderModel(&m), nil
}

func (s *Store) SaveProvider(ctx context.Context, p *provider.Provider) error {
	m := toProviderModel(p)
	_, err := s.col(colProviders).ReplaceOne(ctx, bson.M{"_id": m.Address}, m, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []providerModel
	if err := findAll(ctx, s.col(colProviders), bson.M{}, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*provider.Provider, len(models))
	for i := range models {
		out[i] = fromProviderModel(&models[i])
	}
	return out, nil
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.col(colPlans).InsertOne(ctx, toPlanModel(p))
	if mongo.IsDuplicateKeyError(err) {
		return escrow.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	var m planModel
	err := s.col(colPlans).FindOne(ctx, bson.M{"_id": planID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(&m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	filter := bson.M{"_id": bson.M{"$gt": opts.AfterID}}
	if !types.IsZeroAddress(opts.Provider) {
		filter["provider"] = addrKey(opts.Provider)
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []planModel
	if err := findAll(ctx, s.col(colPlans), filter, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*plan.Plan, 0, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.col(colSubscriptions).InsertOne(ctx, toSubscriptionModel(sub))
	if mongo.IsDuplicateKeyError(err) {
		return escrow.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.col(colSubscriptions).FindOne(ctx, bson.M{"_id": subID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.col(colSubscriptions).ReplaceOne(ctx, bson.M{"_id": sub.ID}, toSubscriptionModel(sub))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID uint64) error {
	_, err := s.col(colSubscriptions).DeleteOne(ctx, bson.M{"_id": subID})
	return err
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{"_id": bson.M{"$gt": opts.AfterID}}
	if !types.IsZeroAddress(opts.Subscriber) {
		filter["subscriber"] = addrKey(opts.Subscriber)
	}
	if opts.PlanID != 0 {
		filter["plan_id"] = opts.PlanID
	}
	if opts.Active != nil {
		filter["active"] = *opts.Active
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []subscriptionModel
	if err := findAll(ctx, s.col(colSubscriptions), filter, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*subscription.Subscription, len(models))
	for i := range models {
		out[i] = fromSubscriptionModel(&models[i])
	}
	return out, nil
}

// ==================== Balance Store ====================

func (s *Store) GetBalance(ctx context.Context, addr types.Address) (types.Amount, error) {
	var m balanceModel
	err := s.col(colBalances).FindOne(ctx, bson.M{"_id": addrKey(addr)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, err
	}
	return parseAmount("amount", m.Amount)
}

func (s *Store) SetBalance(ctx context.Context, addr types.Address, amount types.Amount) error {
	now := time.Now().UTC()
	_, err := s.col(colBalances).UpdateOne(ctx,
		bson.M{"_id": addrKey(addr)},
		bson.M{
			"$set":         bson.M{"amount": amount.String(), "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (s *Store) ListBalances(ctx context.Context) ([]*balance.Balance, error) {
	var models []balanceModel
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := findAll(ctx, s.col(colBalances), bson.M{}, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*balance.Balance, 0, len(models))
	for i := range models {
		b, err := fromBalanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.col(colPayments).InsertOne(ctx, toPaymentModel(p))
	return err
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	filter := bson.M{}
	if opts.SubscriptionID != 0 {
		filter["subscription_id"] = opts.SubscriptionID
	}
	if opts.PlanID != 0 {
		filter["plan_id"] = opts.PlanID
	}
	if !types.IsZeroAddress(opts.From) {
		filter["from"] = addrKey(opts.From)
	}
	if !types.IsZeroAddress(opts.To) {
		filter["to"] = addrKey(opts.To)
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "paid_at", Value: 1},
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	var models []paymentModel
	if err := findAll(ctx, s.col(colPayments), filter, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*payment.Payment, 0, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
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
	docs := make([]any, len(entries))
	for i, e := range entries {
		docs[i] = toJournalModel(e)
	}
	_, err := s.col(colJournal).InsertMany(ctx, docs)
	return err
}

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	filter := bson.M{"_id": bson.M{"$gt": opts.AfterSeq}}
	if opts.Name != "" {
		filter["name"] = opts.Name
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []journalModel
	if err := findAll(ctx, s.col(colJournal), filter, findOpts, &models); err != nil {
		return nil, err
	}

	out := make([]*journal.Entry, 0, len(models))
	for i := range models {
		e, err := fromJournalModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ==================== Helpers ====================

func findAll(ctx context.Context, col *mongo.Collection, filter any, opts *options.FindOptionsBuilder, out any) error {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all escrow collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "paid_at", Value: 1}}},
			{Keys: bson.D{{Key: "from", Value: 1}, {Key: "paid_at", Value: 1}}},
			{Keys: bson.D{{Key: "to", Value: 1}, {Key: "paid_at", Value: 1}}},
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
		},
		colJournal: {
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
}
