package sqlstore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/xraph/escrow/balance"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/journal"
	"github.com/xraph/escrow/payment"
	"github.com/xraph/escrow/plan"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Addresses are stored as lowercase 0x hex so that text order matches byte
// order. Amounts are stored as base-10 text.

func addrKey(a types.Address) string { return strings.ToLower(a.Hex()) }

func parseAddr(s string) types.Address { return common.HexToAddress(s) }

// stateRowID is the key of the single protocol state row.
const stateRowID = 1

type stateRecord struct {
	bun.BaseModel `bun:"table:escrow_protocol,alias:ep"`

	ID                 int          `bun:"id,pk"`
	Admin              string       `bun:"admin,notnull"`
	FeeBps             uint64       `bun:"fee_bps,notnull"`
	NextPlanID         uint64       `bun:"next_plan_id,notnull"`
	NextSubscriptionID uint64       `bun:"next_subscription_id,notnull"`
	NextEventSeq       uint64       `bun:"next_event_seq,notnull"`
	FeesAccrued        types.Amount `bun:"fees_accrued,type:text,notnull"`
	InitializedAt      uint64       `bun:"initialized_at,notnull"`
	CreatedAt          time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newStateRecord(s *protocol.State) *stateRecord {
	return &stateRecord{
		ID:                 stateRowID,
		Admin:              addrKey(s.Admin),
		FeeBps:             s.FeeBps,
		NextPlanID:         s.NextPlanID,
		NextSubscriptionID: s.NextSubscriptionID,
		NextEventSeq:       s.NextEventSeq,
		FeesAccrued:        s.FeesAccrued,
		InitializedAt:      s.InitializedAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (r *stateRecord) toDomain() *protocol.State {
	return &protocol.State{
		Entity:             types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Admin:              parseAddr(r.Admin),
		FeeBps:             r.FeeBps,
		NextPlanID:         r.NextPlanID,
		NextSubscriptionID: r.NextSubscriptionID,
		NextEventSeq:       r.NextEventSeq,
		FeesAccrued:        r.FeesAccrued,
		InitializedAt:      r.InitializedAt,
	}
}

type providerRecord struct {
	bun.BaseModel `bun:"table:escrow_providers,alias:epr"`

	Address      string    `bun:"address,pk"`
	Registered   bool      `bun:"registered,notnull"`
	RegisteredAt uint64    `bun:"registered_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newProviderRecord(p *provider.Provider) *providerRecord {
	return &providerRecord{
		Address:      addrKey(p.Address),
		Registered:   p.Registered,
		RegisteredAt: p.RegisteredAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (r *providerRecord) toDomain() *provider.Provider {
	return &provider.Provider{
		Entity:       types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Address:      parseAddr(r.Address),
		Registered:   r.Registered,
		RegisteredAt: r.RegisteredAt,
	}
}

type planRecord struct {
	bun.BaseModel `bun:"table:escrow_plans,alias:epl"`

	ID          uint64       `bun:"id,pk"`
	Provider    string       `bun:"provider,notnull"`
	Price       types.Amount `bun:"price,type:text,notnull"`
	Interval    uint64       `bun:"interval_seconds,notnull"`
	PublishedAt uint64       `bun:"published_at,notnull"`
	CreatedAt   time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newPlanRecord(p *plan.Plan) *planRecord {
	return &planRecord{
		ID:          p.ID,
		Provider:    addrKey(p.Provider),
		Price:       p.Price,
		Interval:    p.Interval,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r *planRecord) toDomain() *plan.Plan {
	return &plan.Plan{
		Entity:      types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:          r.ID,
		Provider:    parseAddr(r.Provider),
		Price:       r.Price,
		Interval:    r.Interval,
		PublishedAt: r.PublishedAt,
	}
}

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:escrow_subscriptions,alias:es"`

	ID              uint64    `bun:"id,pk"`
	PlanID          uint64    `bun:"plan_id,notnull"`
	Subscriber      string    `bun:"subscriber,notnull"`
	LastPaymentTime uint64    `bun:"last_payment_time,notnull"`
	Active          bool      `bun:"active,notnull"`
	StartedAt       uint64    `bun:"started_at,notnull"`
	DeactivatedAt   uint64    `bun:"deactivated_at,notnull"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newSubscriptionRecord(s *subscription.Subscription) *subscriptionRecord {
	return &subscriptionRecord{
		ID:              s.ID,
		PlanID:          s.PlanID,
		Subscriber:      addrKey(s.Subscriber),
		LastPaymentTime: s.LastPaymentTime,
		Active:          s.Active,
		StartedAt:       s.StartedAt,
		DeactivatedAt:   s.DeactivatedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (r *subscriptionRecord) toDomain() *subscription.Subscription {
	return &subscription.Subscription{
		Entity:          types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:              r.ID,
		PlanID:          r.PlanID,
		Subscriber:      parseAddr(r.Subscriber),
		LastPaymentTime: r.LastPaymentTime,
		Active:          r.Active,
		StartedAt:       r.StartedAt,
		DeactivatedAt:   r.DeactivatedAt,
	}
}

type balanceRecord struct {
	bun.BaseModel `bun:"table:escrow_balances,alias:eb"`

	Address   string       `bun:"address,pk"`
	Amount    types.Amount `bun:"amount,type:text,notnull"`
	CreatedAt time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *balanceRecord) toDomain() *balance.Balance {
	return &balance.Balance{
		Entity:  types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Address: parseAddr(r.Address),
		Amount:  r.Amount,
	}
}

type paymentRecord struct {
	bun.BaseModel `bun:"table:escrow_payments,alias:epa"`

	RowID          int64        `bun:"row_id,pk,autoincrement"`
	ID             string       `bun:"id,notnull,unique"`
	SubscriptionID uint64       `bun:"subscription_id,notnull"`
	PlanID         uint64       `bun:"plan_id,notnull"`
	From           string       `bun:"from_address,notnull"`
	To             string       `bun:"to_address,notnull"`
	Price          types.Amount `bun:"price,type:text,notnull"`
	ProtocolFee    types.Amount `bun:"protocol_fee,type:text,notnull"`
	ProviderAmount types.Amount `bun:"provider_amount,type:text,notnull"`
	PaidAt         uint64       `bun:"paid_at,notnull"`
	Kind           string       `bun:"kind,notnull"`
	CreatedAt      time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newPaymentRecord(p *payment.Payment) *paymentRecord {
	return &paymentRecord{
		ID:             p.ID.String(),
		SubscriptionID: p.SubscriptionID,
		PlanID:         p.PlanID,
		From:           addrKey(p.From),
		To:             addrKey(p.To),
		Price:          p.Price,
		ProtocolFee:    p.ProtocolFee,
		ProviderAmount: p.ProviderAmount,
		PaidAt:         p.PaidAt,
		Kind:           string(p.Kind),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r *paymentRecord) toDomain() (*payment.Payment, error) {
	pid, err := id.PrefixPayment.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		Entity:         types.Entity{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:             pid,
		SubscriptionID: r.SubscriptionID,
		PlanID:         r.PlanID,
		From:           parseAddr(r.From),
		To:             parseAddr(r.To),
		Price:          r.Price,
		ProtocolFee:    r.ProtocolFee,
		ProviderAmount: r.ProviderAmount,
		PaidAt:         r.PaidAt,
		Kind:           payment.Kind(r.Kind),
	}, nil
}

type journalRecord struct {
	bun.BaseModel `bun:"table:escrow_journal,alias:ej"`

	Seq       uint64 `bun:"seq,pk"`
	ID        string `bun:"id,notnull,unique"`
	Name      string `bun:"name,notnull"`
	Topic     string `bun:"topic,notnull"`
	Payload   string `bun:"payload,type:text,notnull"`
	Timestamp uint64 `bun:"emitted_at,notnull"`
}

func newJournalRecord(e *journal.Entry) journalRecord {
	return journalRecord{
		Seq:       e.Seq,
		ID:        e.ID.String(),
		Name:      e.Name,
		Topic:     e.Topic,
		Payload:   string(e.Payload),
		Timestamp: e.Timestamp,
	}
}

func (r *journalRecord) toDomain() (*journal.Entry, error) {
	eid, err := id.PrefixEvent.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &journal.Entry{
		ID:        eid,
		Seq:       r.Seq,
		Name:      r.Name,
		Topic:     r.Topic,
		Payload:   json.RawMessage(r.Payload),
		Timestamp: r.Timestamp,
	}, nil
}
