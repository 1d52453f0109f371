// internal/curve/ledger.go
package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const maxFeeBps = 10_000

var (
	// ErrArithmetic is returned when any intermediate value overflows or underflows.
	ErrArithmetic = errors.New("reserve arithmetic overflow")
	// ErrInsufficientCurveTokens means a buy asks for more than the real token reserve.
	ErrInsufficientCurveTokens = errors.New("insufficient curve tokens")
	// ErrInsufficientCurveSOL means a sell would pay out more than the real SOL reserve.
	ErrInsufficientCurveSOL = errors.New("insufficient curve sol")
	// ErrInvalidFee is returned for fee rates above 100%.
	ErrInvalidFee = errors.New("fee bps out of range")
)

// Reserves is the per-mint reserve ledger. Virtual reserves price the curve,
// real reserves track what the curve actually custodies.
type Reserves struct {
	VirtualSol   uint64 `json:"virtual_sol_reserves"`
	VirtualToken uint64 `json:"virtual_token_reserves"`
	RealSol      uint64 `json:"real_sol_reserves"`
	RealToken    uint64 `json:"real_token_reserves"`
}

// BuyQuote is the priced outcome of spending SolIn lamports.
type BuyQuote struct {
	SolIn    uint64 `json:"sol_in"`
	Fee      uint64 `json:"fee"`
	NetSol   uint64 `json:"net_sol"`
	TokenOut uint64 `json:"token_out"`
	// Completes is set when the buy takes the last real token.
	Completes bool `json:"completes"`
}

// SellQuote is the priced outcome of selling TokenIn raw token units.
type SellQuote struct {
	TokenIn  uint64 `json:"token_in"`
	GrossSol uint64 `json:"gross_sol"`
	Fee      uint64 `json:"fee"`
	SolOut   uint64 `json:"sol_out"`
}

// Fee returns floor(amount * feeBps / 10000).
func Fee(amount, feeBps uint64) (uint64, error) {
	if feeBps > maxFeeBps {
		return 0, ErrInvalidFee
	}
	return mulDivFloor(amount, feeBps, maxFeeBps)
}

// Product returns the constant-product value k over the virtual reserves.
func (r Reserves) Product() *uint256.Int {
	return product(r.VirtualSol, r.VirtualToken)
}

// QuoteBuy prices a buy of solIn lamports. The fee is taken from the input
// before pricing; the token output rounds down.
func (r Reserves) QuoteBuy(solIn, feeBps uint64) (BuyQuote, error) {
	if r.VirtualSol == 0 || r.VirtualToken == 0 {
		return BuyQuote{}, ErrArithmetic
	}
	fee, err := Fee(solIn, feeBps)
	if err != nil {
		return BuyQuote{}, err
	}
	net := solIn - fee

	newVirtualSol, err := add(r.VirtualSol, net)
	if err != nil {
		return BuyQuote{}, err
	}
	newVirtualToken, err := divCeil(r.Product(), newVirtualSol)
	if err != nil {
		return BuyQuote{}, err
	}
	tokenOut, err := sub(r.VirtualToken, newVirtualToken)
	if err != nil {
		return BuyQuote{}, err
	}
	if tokenOut > r.RealToken {
		return BuyQuote{}, fmt.Errorf("%w: want %d, have %d", ErrInsufficientCurveTokens, tokenOut, r.RealToken)
	}

	return BuyQuote{
		SolIn:     solIn,
		Fee:       fee,
		NetSol:    net,
		TokenOut:  tokenOut,
		Completes: tokenOut == r.RealToken,
	}, nil
}

// QuoteSell prices a sell of tokenIn raw units. The SOL leg rounds down and
// the fee is taken from it.
func (r Reserves) QuoteSell(tokenIn, feeBps uint64) (SellQuote, error) {
	if r.VirtualSol == 0 || r.VirtualToken == 0 {
		return SellQuote{}, ErrArithmetic
	}
	newVirtualToken, err := add(r.VirtualToken, tokenIn)
	if err != nil {
		return SellQuote{}, err
	}
	newVirtualSol, err := divCeil(r.Product(), newVirtualToken)
	if err != nil {
		return SellQuote{}, err
	}
	gross, err := sub(r.VirtualSol, newVirtualSol)
	if err != nil {
		return SellQuote{}, err
	}
	if gross > r.RealSol {
		return SellQuote{}, fmt.Errorf("%w: want %d, have %d", ErrInsufficientCurveSOL, gross, r.RealSol)
	}
	fee, err := Fee(gross, feeBps)
	if err != nil {
		return SellQuote{}, err
	}

	return SellQuote{
		TokenIn:  tokenIn,
		GrossSol: gross,
		Fee:      fee,
		SolOut:   gross - fee,
	}, nil
}

// ApplyBuy returns the reserves after a priced buy. Virtual and real sides move together.
func (r Reserves) ApplyBuy(q BuyQuote) (Reserves, error) {
	var (
		next Reserves
		err  error
	)
	if next.VirtualSol, err = add(r.VirtualSol, q.NetSol); err != nil {
		return r, err
	}
	if next.RealSol, err = add(r.RealSol, q.NetSol); err != nil {
		return r, err
	}
	if next.VirtualToken, err = sub(r.VirtualToken, q.TokenOut); err != nil {
		return r, err
	}
	if next.RealToken, err = sub(r.RealToken, q.TokenOut); err != nil {
		return r, err
	}
	if next.VirtualToken == 0 {
		return r, ErrArithmetic
	}
	return next, nil
}

// ApplySell returns the reserves after a priced sell.
func (r Reserves) ApplySell(q SellQuote) (Reserves, error) {
	var (
		next Reserves
		err  error
	)
	if next.VirtualToken, err = add(r.VirtualToken, q.TokenIn); err != nil {
		return r, err
	}
	if next.RealToken, err = add(r.RealToken, q.TokenIn); err != nil {
		return r, err
	}
	if next.VirtualSol, err = sub(r.VirtualSol, q.GrossSol); err != nil {
		return r, err
	}
	if next.RealSol, err = sub(r.RealSol, q.GrossSol); err != nil {
		return r, err
	}
	return next, nil
}

// Price returns the marginal price in lamports per raw token unit.
func (r Reserves) Price() decimal.Decimal {
	if r.VirtualToken == 0 {
		return decimal.Zero
	}
	return decimal.NewFromUint64(r.VirtualSol).Div(decimal.NewFromUint64(r.VirtualToken))
}

// EscrowTokens returns how many tokens remain in the curve escrow for a curve
// that started with initialVirtualToken and minted supply.
func EscrowTokens(supply, initialVirtualToken, virtualToken uint64) (uint64, error) {
	sold, err := sub(initialVirtualToken, virtualToken)
	if err != nil {
		return 0, err
	}
	return sub(supply, sold)
}
