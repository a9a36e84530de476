package escrow

import (
	"errors"
	"testing"

	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/types"
)

func TestSplitPayment(t *testing.T) {
	tests := []struct {
		price    types.Amount
		feeBps   uint64
		fee      types.Amount
		provider types.Amount
	}{
		{types.NewAmount(1000), protocol.DefaultFeeBps, types.NewAmount(25), types.NewAmount(975)},
		{types.NewAmount(3), protocol.DefaultFeeBps, types.NewAmount(0), types.NewAmount(3)},
		{types.NewAmount(39), protocol.DefaultFeeBps, types.NewAmount(0), types.NewAmount(39)},
		{types.NewAmount(40), protocol.DefaultFeeBps, types.NewAmount(1), types.NewAmount(39)},
		{types.NewAmount(1), protocol.DefaultFeeBps, types.NewAmount(0), types.NewAmount(1)},
		{types.NewAmount(1000), 0, types.NewAmount(0), types.NewAmount(1000)},
		{types.NewAmount(1000), protocol.BasisPoints, types.NewAmount(1000), types.NewAmount(0)},
	}

	for _, tt := range tests {
		fee, providerAmount, err := SplitPayment(tt.price, tt.feeBps)
		if err != nil {
			t.Fatalf("SplitPayment(%s, %d): %v", tt.price, tt.feeBps, err)
		}
		if !fee.Equal(tt.fee) {
			t.Errorf("SplitPayment(%s, %d) fee: got %s, want %s", tt.price, tt.feeBps, fee, tt.fee)
		}
		if !providerAmount.Equal(tt.provider) {
			t.Errorf("SplitPayment(%s, %d) provider: got %s, want %s", tt.price, tt.feeBps, providerAmount, tt.provider)
		}
		sum, _ := fee.Add(providerAmount)
		if !sum.Equal(tt.price) {
			t.Errorf("SplitPayment(%s, %d): fee + provider = %s", tt.price, tt.feeBps, sum)
		}
	}
}

func TestSplitPaymentOverflow(t *testing.T) {
	if _, _, err := SplitPayment(types.MaxAmount(), protocol.DefaultFeeBps); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("got %v, want ErrAmountOverflow", err)
	}
	if _, _, err := SplitPayment(types.NewAmount(10000), protocol.BasisPoints+1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want invalid input", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrProviderNotRegistered, KindUnauthorized},
		{ErrPaymentNotDue, KindInvalidInput},
		{ErrInvalidWithdrawAmount, KindInsufficientFunds},
		{ErrPlanNotFound, KindNotFound},
		{ErrStoreClosed, KindNone},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}
