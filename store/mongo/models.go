package mongo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

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

func addrKey(a types.Address) string { return strings.ToLower(a.Hex()) }

func parseAddr(s string) types.Address { return common.HexToAddress(s) }

func parseAmount(field, s string) (types.Amount, error) {
	a, err := types.ParseAmount(s)
	if err != nil {
		return types.Amount{}, fmt.Errorf("escrow/mongo: decode %s: %w", field, err)
	}
	return a, nil
}

// ==================== Protocol ====================

const stateDocID = "protocol"

type stateModel struct {
	ID                 string    `bson:"_id"`
	Admin              string    `bson:"admin"`
	FeeBps             uint64    `bson:"fee_bps"`
	NextPlanID         uint64    `bson:"next_plan_id"`
	NextSubscriptionID uint64    `bson:"next_subscription_id"`
	NextEventSeq       uint64    `bson:"next_event_seq"`
	FeesAccrued        string    `bson:"fees_accrued"`
	InitializedAt      uint64    `bson:"initialized_at"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func toStateModel(s *protocol.State) *stateModel {
	return &stateModel{
		ID:                 stateDocID,
		Admin:              addrKey(s.Admin),
		FeeBps:             s.FeeBps,
		NextPlanID:         s.NextPlanID,
		NextSubscriptionID: s.NextSubscriptionID,
		NextEventSeq:       s.NextEventSeq,
		FeesAccrued:        s.FeesAccrued.String(),
		InitializedAt:      s.InitializedAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromStateModel(m *stateModel) (*protocol.State, error) {
	fees, err := parseAmount("fees_accrued", m.FeesAccrued)
	if err != nil {
		return nil, err
	}
	return &protocol.State{
		Entity:             types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Admin:              parseAddr(m.Admin),
		FeeBps:             m.FeeBps,
		NextPlanID:         m.NextPlanID,
		NextSubscriptionID: m.NextSubscriptionID,
		NextEventSeq:       m.NextEventSeq,
		FeesAccrued:        fees,
		InitializedAt:      m.InitializedAt,
	}, nil
}

// ==================== Providers ====================

type providerModel struct {
	Address      string    `bson:"_id"`
	Registered   bool      `bson:"registered"`
	RegisteredAt uint64    `bson:"registered_at"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	return &providerModel{
		Address:      addrKey(p.Address),
		Registered:   p.Registered,
		RegisteredAt: p.RegisteredAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) *provider.Provider {
	return &provider.Provider{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Address:      parseAddr(m.Address),
		Registered:   m.Registered,
		RegisteredAt: m.RegisteredAt,
	}
}

// ==================== Plans ====================

type planModel struct {
	ID          uint64    `bson:"_id"`
	Provider    string    `bson:"provider"`
	Price       string    `bson:"price"`
	Interval    uint64    `bson:"interval"`
	PublishedAt uint64    `bson:"published_at"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		ID:          p.ID,
		Provider:    addrKey(p.Provider),
		Price:       p.Price.String(),
		Interval:    p.Interval,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	price, err := parseAmount("price", m.Price)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          m.ID,
		Provider:    parseAddr(m.Provider),
		Price:       price,
		Interval:    m.Interval,
		PublishedAt: m.PublishedAt,
	}, nil
}

// ==================== Subscriptions ====================

type subscriptionModel struct {
	ID              uint64    `bson:"_id"`
	PlanID          uint64    `bson:"plan_id"`
	Subscriber      string    `bson:"subscriber"`
	LastPaymentTime uint64    `bson:"last_payment_time"`
	Active          bool      `bson:"active"`
	StartedAt       uint64    `bson:"started_at"`
	DeactivatedAt   uint64    `bson:"deactivated_at"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
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

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:          types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              m.ID,
		PlanID:          m.PlanID,
		Subscriber:      parseAddr(m.Subscriber),
		LastPaymentTime: m.LastPaymentTime,
		Active:          m.Active,
		StartedAt:       m.StartedAt,
		DeactivatedAt:   m.DeactivatedAt,
	}
}

// ==================== Balances ====================

type balanceModel struct {
	Address   string    `bson:"_id"`
	Amount    string    `bson:"amount"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func fromBalanceModel(m *balanceModel) (*balance.Balance, error) {
	amount, err := parseAmount("amount", m.Amount)
	if err != nil {
		return nil, err
	}
	return &balance.Balance{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Address: parseAddr(m.Address),
		Amount:  amount,
	}, nil
}

// ==================== Payments ====================

type paymentModel struct {
	ID             string    `bson:"_id"`
	SubscriptionID uint64    `bson:"subscription_id"`
	PlanID         uint64    `bson:"plan_id"`
	From           string    `bson:"from"`
	To             string    `bson:"to"`
	Price          string    `bson:"price"`
	ProtocolFee    string    `bson:"protocol_fee"`
	ProviderAmount string    `bson:"provider_amount"`
	PaidAt         uint64    `bson:"paid_at"`
	Kind           string    `bson:"kind"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:             p.ID.String(),
		SubscriptionID: p.SubscriptionID,
		PlanID:         p.PlanID,
		From:           addrKey(p.From),
		To:             addrKey(p.To),
		Price:          p.Price.String(),
		ProtocolFee:    p.ProtocolFee.String(),
		ProviderAmount: p.ProviderAmount.String(),
		PaidAt:         p.PaidAt,
		Kind:           string(p.Kind),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	pid, err := id.PrefixPayment.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("escrow/mongo: parse payment ID %q: %w", m.ID, err)
	}
	price, err := parseAmount("price", m.Price)
	if err != nil {
		return nil, err
	}
	fee, err := parseAmount("protocol_fee", m.ProtocolFee)
	if err != nil {
		return nil, err
	}
	net, err := parseAmount("provider_amount", m.ProviderAmount)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             pid,
		SubscriptionID: m.SubscriptionID,
		PlanID:         m.PlanID,
		From:           parseAddr(m.From),
		To:             parseAddr(m.To),
		Price:          price,
		ProtocolFee:    fee,
		ProviderAmount: net,
		PaidAt:         m.PaidAt,
		Kind:           payment.Kind(m.Kind),
	}, nil
}

// ==================== Journal ====================

type journalModel struct {
	Seq       uint64 `bson:"_id"`
	ID        string `bson:"event_id"`
	Name      string `bson:"name"`
	Topic     string `bson:"topic"`
	Payload   string `bson:"payload"`
	Timestamp uint64 `bson:"timestamp"`
}

func toJournalModel(e *journal.Entry) *journalModel {
	return &journalModel{
		Seq:       e.Seq,
		ID:        e.ID.String(),
		Name:      e.Name,
		Topic:     e.Topic,
		Payload:   string(e.Payload),
		Timestamp: e.Timestamp,
	}
}

func fromJournalModel(m *journalModel) (*journal.Entry, error) {
	eid, err := id.PrefixEvent.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("escrow/mongo: parse event ID %q: %w", m.ID, err)
	}
	return &journal.Entry{
		ID:        eid,
		Seq:       m.Seq,
		Name:      m.Name,
		Topic:     m.Topic,
		Payload:   json.RawMessage(m.Payload),
		Timestamp: m.Timestamp,
	}, nil
}
