// internal/server/types.go
package server

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/program"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	// ProgramCode and Name identify launchpad errors.
	ProgramCode uint32 `json:"program_code,omitempty"`
	Name        string `json:"name,omitempty"`
	Details     any    `json:"details,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

// InitializeRequest takes the global settings inline. Without sol_price_usd
// the oracle prices migrate_fee_usd.
type InitializeRequest struct {
	program.InitializeParams
	SolPriceUSD *decimal.Decimal `json:"sol_price_usd,omitempty"`
}

type SetParamsRequest struct {
	program.Settings
	program.Authorities
}

type WhitelistRequest struct {
	Creator solana.PublicKey `json:"creator"`
	Add     bool             `json:"add"`
}

type CreateCurveRequest struct {
	Mint solana.PublicKey `json:"mint"`
	program.CreateCurveParams
}

// CreatePoolRequest fields default to wrapped SOL and the global AMM config.
type CreatePoolRequest struct {
	QuoteMint *solana.PublicKey `json:"quote_mint,omitempty"`
	Config    *solana.PublicKey `json:"config,omitempty"`
}

// InstructionRequest carries base64 instruction data. Accounts.Signer is
// replaced by the authenticated signer.
type InstructionRequest struct {
	Data     string           `json:"data"`
	Accounts program.Accounts `json:"accounts"`
}

type InstructionResponse struct {
	Instruction string `json:"instruction"`
	Result      any    `json:"result"`
}

type CurvesResponse struct {
	Items any `json:"items"`
}
