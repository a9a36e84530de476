package event

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/escrow/types"
)

func TestSignatures(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{NameProviderRegistered, "ProviderRegistered(address,string)"},
		{NamePlanCreated, "PlanCreated(uint256,address,uint256,uint256)"},
		{NameSubscriptionCreated, "SubscriptionCreated(uint256,address,uint256)"},
		{NamePaymentProcessed, "PaymentProcessed(address,address,uint256,uint256)"},
		{NameProviderEarnings, "ProviderEarnings(address,uint256,uint256)"},
		{NameEscrowDeposit, "EscrowDeposit(address,uint256,uint256)"},
		{NameEscrowWithdrawal, "EscrowWithdrawal(address,uint256,uint256)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signature(tt.name); got != tt.want {
				t.Errorf("Signature: got %q, want %q", got, tt.want)
			}
			want := crypto.Keccak256Hash([]byte(tt.want))
			if got := Topic(tt.name); got != want {
				t.Errorf("Topic: got %s, want %s", got.Hex(), want.Hex())
			}
		})
	}

	if len(Names()) != len(schemas) {
		t.Errorf("Names: got %d names, want %d", len(Names()), len(schemas))
	}
}

func TestLogIndexedFields(t *testing.T) {
	user := types.MustParseAddress("0x00000000000000000000000000000000000000aa")
	provider := types.MustParseAddress("0x00000000000000000000000000000000000000bb")

	topics, data, err := Log(&PaymentProcessed{
		From:           user,
		To:             provider,
		Amount:         types.NewAmount(1000),
		SubscriptionID: 7,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(topics) != 4 {
		t.Fatalf("topics: got %d, want 4", len(topics))
	}
	if topics[0] != Topic(NamePaymentProcessed) {
		t.Error("topic 0 should be the signature hash")
	}
	if common.BytesToAddress(topics[1].Bytes()) != user {
		t.Errorf("topic 1: got %s, want from address", topics[1].Hex())
	}
	if common.BytesToAddress(topics[2].Bytes()) != provider {
		t.Errorf("topic 2: got %s, want to address", topics[2].Hex())
	}
	if topics[3].Big().Uint64() != 7 {
		t.Errorf("topic 3: got %s, want subscription 7", topics[3].Hex())
	}

	// amount is the only non-indexed field: one 32-byte word.
	if len(data) != 32 {
		t.Fatalf("data: got %d bytes, want 32", len(data))
	}
	if common.BytesToHash(data).Big().Uint64() != 1000 {
		t.Errorf("data: got %s, want 1000", hex.EncodeToString(data))
	}
}

func TestLogString(t *testing.T) {
	topics, data, err := Log(&ProviderRegistered{
		Provider: types.MustParseAddress("0x00000000000000000000000000000000000000aa"),
		Name:     "Acme",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 {
		t.Fatalf("topics: got %d, want 2", len(topics))
	}
	// offset word + length word + one padded data word
	if len(data) != 96 {
		t.Errorf("data: got %d bytes, want 96", len(data))
	}
}

func TestLogAllEvents(t *testing.T) {
	events := []Event{
		&ProviderRegistered{Name: "x"},
		&PlanCreated{PlanID: 1, Price: types.NewAmount(1), Interval: 60},
		&SubscriptionCreated{SubscriptionID: 1, PlanID: 1},
		&PaymentProcessed{Amount: types.NewAmount(1), SubscriptionID: 1},
		&ProviderEarnings{PlanID: 1, Amount: types.NewAmount(1)},
		&EscrowDeposit{Amount: types.NewAmount(1), NewBalance: types.NewAmount(1)},
		&EscrowWithdrawal{Amount: types.NewAmount(1), NewBalance: types.MaxAmount()},
	}

	for _, e := range events {
		t.Run(e.EventName(), func(t *testing.T) {
			topics, _, err := Log(e)
			if err != nil {
				t.Fatalf("Log: %v", err)
			}
			indexed := 0
			for _, p := range schemas[e.EventName()] {
				if p.indexed {
					indexed++
				}
			}
			if len(topics) != indexed+1 {
				t.Errorf("topics: got %d, want %d", len(topics), indexed+1)
			}
		})
	}
}
