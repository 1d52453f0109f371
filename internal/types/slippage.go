// internal/types/slippage.go
package types

import "math/bits"

// SlippageType selects how a minimum output is derived from a quote.
type SlippageType string

const (
	// SlippageFixed uses Value as the exact minimum output.
	SlippageFixed SlippageType = "fixed"
	// SlippageBps tolerates Value basis points below the quoted output.
	SlippageBps SlippageType = "bps"
	// SlippageNone accepts any non-zero output.
	SlippageNone SlippageType = "none"
)

// SlippageConfig configures the minimum-output policy for a swap.
type SlippageConfig struct {
	Type  SlippageType `json:"type"`
	Value uint64       `json:"value"`
}

// MinAmountOut computes the minimum acceptable output for an expected amount.
// Basis-point tolerance rounds down so the bound never exceeds the quote.
func MinAmountOut(expected uint64, cfg SlippageConfig) uint64 {
	switch cfg.Type {
	case SlippageFixed:
		return cfg.Value
	case SlippageBps:
		if cfg.Value >= MaxBasisPoints {
			return 1
		}
		keep := MaxBasisPoints - cfg.Value
		hi, lo := bits.Mul64(expected, keep)
		if hi != 0 {
			// expected*keep overflowed 64 bits; divide first at the cost of a unit of precision
			return expected / MaxBasisPoints * keep
		}
		out := lo / MaxBasisPoints
		if out == 0 {
			return 1
		}
		return out
	default:
		return 1
	}
}
