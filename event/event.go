// Package event defines the domain events emitted by the escrow engine.
//
// Field sets and order follow the contract ABI the escrow replaces, so every
// event can be rendered as the EVM log an on-chain deployment would have
// produced (see Log). Off-chain indexers can keep matching on the same topics.
package event

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/escrow/types"
)

// Event names.
const (
	NameProviderRegistered  = "ProviderRegistered"
	NamePlanCreated         = "PlanCreated"
	NameSubscriptionCreated = "SubscriptionCreated"
	NamePaymentProcessed    = "PaymentProcessed"
	NameProviderEarnings    = "ProviderEarnings"
	NameEscrowDeposit       = "EscrowDeposit"
	NameEscrowWithdrawal    = "EscrowWithdrawal"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	values() []any
}

type param struct {
	name    string
	typ     string
	indexed bool
}

var schemas = map[string][]param{
	NameProviderRegistered: {
		{"provider", "address", true},
		{"name", "string", false},
	},
	NamePlanCreated: {
		{"planId", "uint256", true},
		{"provider", "address", true},
		{"price", "uint256", false},
		{"interval", "uint256", false},
	},
	NameSubscriptionCreated: {
		{"subscriptionId", "uint256", true},
		{"user", "address", true},
		{"planId", "uint256", true},
	},
	NamePaymentProcessed: {
		{"from", "address", true},
		{"to", "address", true},
		{"amount", "uint256", false},
		{"subscriptionId", "uint256", true},
	},
	NameProviderEarnings: {
		{"provider", "address", true},
		{"planId", "uint256", true},
		{"amount", "uint256", false},
	},
	NameEscrowDeposit: {
		{"user", "address", true},
		{"amount", "uint256", false},
		{"newBalance", "uint256", false},
	},
	NameEscrowWithdrawal: {
		{"user", "address", true},
		{"amount", "uint256", false},
		{"newBalance", "uint256", false},
	},
}

// ProviderRegistered is emitted when an address joins the provider registry.
type ProviderRegistered struct {
	Provider types.Address `json:"provider"`
	Name     string        `json:"name"`
}

// PlanCreated is emitted when a provider publishes a plan.
type PlanCreated struct {
	PlanID   uint64        `json:"planId"`
	Provider types.Address `json:"provider"`
	Price    types.Amount  `json:"price"`
	Interval uint64        `json:"interval"`
}

// SubscriptionCreated is emitted once per successful subscribe.
type SubscriptionCreated struct {
	SubscriptionID uint64        `json:"subscriptionId"`
	User           types.Address `json:"user"`
	PlanID         uint64        `json:"planId"`
}

// PaymentProcessed is emitted for every successful charge. Amount is what
// reached the provider, net of the protocol fee.
type PaymentProcessed struct {
	From           types.Address `json:"from"`
	To             types.Address `json:"to"`
	Amount         types.Amount  `json:"amount"`
	SubscriptionID uint64        `json:"subscriptionId"`
}

// ProviderEarnings is emitted alongside PaymentProcessed. Amount is the
// provider's share after the protocol fee.
type ProviderEarnings struct {
	Provider types.Address `json:"provider"`
	PlanID   uint64        `json:"planId"`
	Amount   types.Amount  `json:"amount"`
}

// EscrowDeposit is emitted when a user tops up their escrow balance.
type EscrowDeposit struct {
	User       types.Address `json:"user"`
	Amount     types.Amount  `json:"amount"`
	NewBalance types.Amount  `json:"newBalance"`
}

// EscrowWithdrawal is emitted when a user withdraws from their escrow balance.
type EscrowWithdrawal struct {
	User       types.Address `json:"user"`
	Amount     types.Amount  `json:"amount"`
	NewBalance types.Amount  `json:"newBalance"`
}

func (*ProviderRegistered) EventName() string  { return NameProviderRegistered }
func (*PlanCreated) EventName() string         { return NamePlanCreated }
func (*SubscriptionCreated) EventName() string { return NameSubscriptionCreated }
func (*PaymentProcessed) EventName() string    { return NamePaymentProcessed }
func (*ProviderEarnings) EventName() string    { return NameProviderEarnings }
func (*EscrowDeposit) EventName() string       { return NameEscrowDeposit }
func (*EscrowWithdrawal) EventName() string    { return NameEscrowWithdrawal }

func (e *ProviderRegistered) values() []any { return []any{e.Provider, e.Name} }

func (e *PlanCreated) values() []any {
	return []any{u64(e.PlanID), e.Provider, e.Price.Big(), u64(e.Interval)}
}

func (e *SubscriptionCreated) values() []any {
	return []any{u64(e.SubscriptionID), e.User, u64(e.PlanID)}
}

func (e *PaymentProcessed) values() []any {
	return []any{e.From, e.To, e.Amount.Big(), u64(e.SubscriptionID)}
}

func (e *ProviderEarnings) values() []any {
	return []any{e.Provider, u64(e.PlanID), e.Amount.Big()}
}

func (e *EscrowDeposit) values() []any {
	return []any{e.User, e.Amount.Big(), e.NewBalance.Big()}
}

func (e *EscrowWithdrawal) values() []any {
	return []any{e.User, e.Amount.Big(), e.NewBalance.Big()}
}

func u64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Signature returns the canonical Solidity signature of the named event,
// e.g. "EscrowDeposit(address,uint256,uint256)".
func Signature(name string) string {
	params := schemas[name]
	typs := make([]string, len(params))
	for i, p := range params {
		typs[i] = p.typ
	}
	return name + "(" + strings.Join(typs, ",") + ")"
}

// Topic returns the keccak-256 hash of the event signature (log topic 0).
func Topic(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(Signature(name)))
}

// Names lists all event names in declaration order.
func Names() []string {
	return []string{
		NameProviderRegistered,
		NamePlanCreated,
		NameSubscriptionCreated,
		NamePaymentProcessed,
		NameProviderEarnings,
		NameEscrowDeposit,
		NameEscrowWithdrawal,
	}
}

// Log renders e as an EVM log: topic 0 is the signature hash, followed by the
// indexed fields in order. Non-indexed fields are ABI encoded into data.
func Log(e Event) ([]common.Hash, []byte, error) {
	name := e.EventName()
	params := schemas[name]
	vals := e.values()

	topics := []common.Hash{Topic(name)}
	var args abi.Arguments
	var data []any
	for i, p := range params {
		if p.indexed {
			topics = append(topics, topicFor(vals[i]))
			continue
		}
		typ, err := abi.NewType(p.typ, "", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("event: %s: %w", name, err)
		}
		args = append(args, abi.Argument{Name: p.name, Type: typ})
		data = append(data, vals[i])
	}

	packed, err := args.Pack(data...)
	if err != nil {
		return nil, nil, fmt.Errorf("event: pack %s: %w", name, err)
	}
	return topics, packed, nil
}

func topicFor(v any) common.Hash {
	switch x := v.(type) {
	case types.Address:
		return common.BytesToHash(x.Bytes())
	case *big.Int:
		return common.BigToHash(x)
	default:
		panic(fmt.Sprintf("event: unsupported indexed value %T", v))
	}
}
