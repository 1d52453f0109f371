// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

// EventType represents the type of event.
type EventType string

const (
	// Configuration events
	GlobalUpdated    EventType = "global.updated"
	WhitelistUpdated EventType = "whitelist.updated"

	// Curve events
	CurveCreated   EventType = "curve.created"
	Trade          EventType = "curve.trade"
	CurveCompleted EventType = "curve.completed"

	// Migration events
	PoolCreated EventType = "migration.pool_created"
	PoolLocked  EventType = "migration.pool_locked"

	anyEvent EventType = "*"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

func NewBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at.UTC()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MintEvent is implemented by events scoped to one curve.
type MintEvent interface {
	Event
	MintAddress() solana.PublicKey
}

// GlobalUpdateEvent is emitted after initialize and every setParams.
type GlobalUpdateEvent struct {
	BaseEvent
	GlobalAuthority             solana.PublicKey `json:"global_authority"`
	MigrationAuthority          solana.PublicKey `json:"migration_authority"`
	Status                      uint8            `json:"status"`
	InitialVirtualTokenReserves uint64           `json:"initial_virtual_token_reserves"`
	InitialVirtualSolReserves   uint64           `json:"initial_virtual_sol_reserves"`
	InitialRealTokenReserves    uint64           `json:"initial_real_token_reserves"`
	TokenTotalSupply            uint64           `json:"token_total_supply"`
	FeeBps                      uint64           `json:"fee_bps"`
	MintDecimals                uint8            `json:"mint_decimals"`
}

// WhitelistUpdateEvent is emitted when a creator is added or removed.
type WhitelistUpdateEvent struct {
	BaseEvent
	Creator solana.PublicKey `json:"creator"`
	Added   bool             `json:"added"`
}

// CreateEvent is emitted when a curve is launched.
type CreateEvent struct {
	BaseEvent
	Mint      solana.PublicKey `json:"mint"`
	Creator   solana.PublicKey `json:"creator"`
	Name      string           `json:"name"`
	Symbol    string           `json:"symbol"`
	URI       string           `json:"uri"`
	StartTime int64            `json:"start_time"`
	curve.Reserves
	TokenTotalSupply uint64 `json:"token_total_supply"`
}

func (e *CreateEvent) MintAddress() solana.PublicKey { return e.Mint }

// TradeEvent is emitted for every swap with the reserves after it.
type TradeEvent struct {
	BaseEvent
	Mint        solana.PublicKey `json:"mint"`
	SolAmount   uint64           `json:"sol_amount"`
	TokenAmount uint64           `json:"token_amount"`
	FeeLamports uint64           `json:"fee_lamports"`
	IsBuy       bool             `json:"is_buy"`
	User        solana.PublicKey `json:"user"`
	curve.Reserves
}

func (e *TradeEvent) MintAddress() solana.PublicKey { return e.Mint }

// CompleteEvent is emitted once when a curve stops trading.
type CompleteEvent struct {
	BaseEvent
	User solana.PublicKey `json:"user"`
	Mint solana.PublicKey `json:"mint"`
	curve.Reserves
}

func (e *CompleteEvent) MintAddress() solana.PublicKey { return e.Mint }

// PoolCreatedEvent is emitted when a complete curve's liquidity moves into the AMM.
type PoolCreatedEvent struct {
	BaseEvent
	Mint        solana.PublicKey `json:"mint"`
	Authority   solana.PublicKey `json:"authority"`
	Pool        solana.PublicKey `json:"pool"`
	LPMint      solana.PublicKey `json:"lp_mint"`
	LPAmount    uint64           `json:"lp_amount"`
	SolAmount   uint64           `json:"sol_amount"`
	TokenAmount uint64           `json:"token_amount"`
	MigrateFee  uint64           `json:"migrate_fee"`
}

func (e *PoolCreatedEvent) MintAddress() solana.PublicKey { return e.Mint }

// PoolLockedEvent is emitted when the LP position is escrowed.
type PoolLockedEvent struct {
	BaseEvent
	Mint      solana.PublicKey `json:"mint"`
	Authority solana.PublicKey `json:"authority"`
	Pool      solana.PublicKey `json:"pool"`
	LPMint    solana.PublicKey `json:"lp_mint"`
	LPAmount  uint64           `json:"lp_amount"`
	Escrow    solana.PublicKey `json:"escrow"`
}

func (e *PoolLockedEvent) MintAddress() solana.PublicKey { return e.Mint }
