// internal/types/types.go
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	LamportsPerSOL uint64 = 1_000_000_000
	MaxBasisPoints uint64 = 10_000
)

var lamportsPerSOL = decimal.NewFromInt(int64(LamportsPerSOL))

// FormatLamports renders a lamport amount as a SOL string.
func FormatLamports(lamports uint64) string {
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOL).String()
}

// FormatUnits renders a raw token amount with the given number of decimals.
func FormatUnits(amount uint64, decimals uint8) string {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals)).String()
}

// USDToLamports converts a USD amount into lamports at the given SOL/USD price,
// truncating toward zero.
func USDToLamports(usd, solPriceUSD decimal.Decimal) (uint64, error) {
	if !solPriceUSD.IsPositive() {
		return 0, fmt.Errorf("sol price must be positive, got %s", solPriceUSD)
	}
	if usd.IsNegative() {
		return 0, fmt.Errorf("usd amount must not be negative, got %s", usd)
	}
	lamports := usd.Mul(lamportsPerSOL).Div(solPriceUSD).Truncate(0)
	if lamports.BigInt().IsUint64() {
		return lamports.BigInt().Uint64(), nil
	}
	return 0, fmt.Errorf("converted fee %s overflows u64", lamports)
}
