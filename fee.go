package escrow

import (
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/types"
)

// SplitPayment divides price into the protocol fee and the provider's share:
// fee = price * feeBps / 10000, truncated, and providerAmount = price - fee.
// The two always add up to price.
func SplitPayment(price types.Amount, feeBps uint64) (fee, providerAmount types.Amount, err error) {
	fee, err = price.MulDiv(feeBps, protocol.BasisPoints)
	if err != nil {
		return types.Amount{}, types.Amount{}, ErrAmountOverflow
	}
	providerAmount, err = price.Sub(fee)
	if err != nil {
		// fee > price only when feeBps exceeds 10000.
		return types.Amount{}, types.Amount{}, ErrAmountOverflow
	}
	return fee, providerAmount, nil
}
