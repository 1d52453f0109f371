// internal/events/anchor.go
package events

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

// LogPrefix is how Anchor programs emit serialized events into transaction logs.
const LogPrefix = "Program data: "

var ErrUnknownEvent = errors.New("unknown event discriminator")

// EventDiscriminator returns the 8-byte prefix of a serialized event.
func EventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	globalUpdateDisc    = EventDiscriminator("GlobalUpdateEvent")
	whitelistUpdateDisc = EventDiscriminator("WhitelistUpdateEvent")
	createDisc          = EventDiscriminator("CreateEvent")
	tradeDisc           = EventDiscriminator("TradeEvent")
	completeDisc        = EventDiscriminator("CompleteEvent")
	poolCreatedDisc     = EventDiscriminator("PoolCreatedEvent")
	poolLockedDisc      = EventDiscriminator("PoolLockedEvent")
)

type globalUpdateWire struct {
	GlobalAuthority             solana.PublicKey
	MigrationAuthority          solana.PublicKey
	Status                      uint8
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBps                      uint64
	MintDecimals                uint8
}

type whitelistUpdateWire struct {
	Creator   solana.PublicKey
	Added     bool
	Timestamp int64
}

type createWire struct {
	Mint                 solana.PublicKey
	Creator              solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	StartTime            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokenTotalSupply     uint64
}

type tradeWire struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	FeeLamports          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

type completeWire struct {
	User                 solana.PublicKey
	Mint                 solana.PublicKey
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	Timestamp            int64
}

type poolCreatedWire struct {
	Mint        solana.PublicKey
	Authority   solana.PublicKey
	Pool        solana.PublicKey
	LPMint      solana.PublicKey
	LPAmount    uint64
	SolAmount   uint64
	TokenAmount uint64
	MigrateFee  uint64
	Timestamp   int64
}

type poolLockedWire struct {
	Mint      solana.PublicKey
	Authority solana.PublicKey
	Pool      solana.PublicKey
	LPMint    solana.PublicKey
	LPAmount  uint64
	Escrow    solana.PublicKey
	Timestamp int64
}

// Encode serializes an event as discriminator followed by its Borsh body.
func Encode(event Event) ([]byte, error) {
	var (
		disc [8]byte
		wire interface{}
	)

	switch e := event.(type) {
	case *GlobalUpdateEvent:
		disc = globalUpdateDisc
		wire = globalUpdateWire{
			GlobalAuthority:             e.GlobalAuthority,
			MigrationAuthority:          e.MigrationAuthority,
			Status:                      e.Status,
			InitialVirtualTokenReserves: e.InitialVirtualTokenReserves,
			InitialVirtualSolReserves:   e.InitialVirtualSolReserves,
			InitialRealTokenReserves:    e.InitialRealTokenReserves,
			TokenTotalSupply:            e.TokenTotalSupply,
			FeeBps:                      e.FeeBps,
			MintDecimals:                e.MintDecimals,
		}
	case *WhitelistUpdateEvent:
		disc = whitelistUpdateDisc
		wire = whitelistUpdateWire{Creator: e.Creator, Added: e.Added, Timestamp: e.EventTime.Unix()}
	case *CreateEvent:
		disc = createDisc
		wire = createWire{
			Mint:                 e.Mint,
			Creator:              e.Creator,
			Name:                 e.Name,
			Symbol:               e.Symbol,
			URI:                  e.URI,
			StartTime:            e.StartTime,
			VirtualSolReserves:   e.VirtualSol,
			VirtualTokenReserves: e.VirtualToken,
			RealSolReserves:      e.RealSol,
			RealTokenReserves:    e.RealToken,
			TokenTotalSupply:     e.TokenTotalSupply,
		}
	case *TradeEvent:
		disc = tradeDisc
		wire = tradeWire{
			Mint:                 e.Mint,
			SolAmount:            e.SolAmount,
			TokenAmount:          e.TokenAmount,
			FeeLamports:          e.FeeLamports,
			IsBuy:                e.IsBuy,
			User:                 e.User,
			Timestamp:            e.EventTime.Unix(),
			VirtualSolReserves:   e.VirtualSol,
			VirtualTokenReserves: e.VirtualToken,
			RealSolReserves:      e.RealSol,
			RealTokenReserves:    e.RealToken,
		}
	case *CompleteEvent:
		disc = completeDisc
		wire = completeWire{
			User:                 e.User,
			Mint:                 e.Mint,
			VirtualSolReserves:   e.VirtualSol,
			VirtualTokenReserves: e.VirtualToken,
			RealSolReserves:      e.RealSol,
			RealTokenReserves:    e.RealToken,
			Timestamp:            e.EventTime.Unix(),
		}
	case *PoolCreatedEvent:
		disc = poolCreatedDisc
		wire = poolCreatedWire{
			Mint:        e.Mint,
			Authority:   e.Authority,
			Pool:        e.Pool,
			LPMint:      e.LPMint,
			LPAmount:    e.LPAmount,
			SolAmount:   e.SolAmount,
			TokenAmount: e.TokenAmount,
			MigrateFee:  e.MigrateFee,
			Timestamp:   e.EventTime.Unix(),
		}
	case *PoolLockedEvent:
		disc = poolLockedDisc
		wire = poolLockedWire{
			Mint:      e.Mint,
			Authority: e.Authority,
			Pool:      e.Pool,
			LPMint:    e.LPMint,
			LPAmount:  e.LPAmount,
			Escrow:    e.Escrow,
			Timestamp: e.EventTime.Unix(),
		}
	default:
		return nil, fmt.Errorf("cannot encode event type %T", event)
	}

	body, err := borsh.Serialize(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", event.Type(), err)
	}
	return append(disc[:], body...), nil
}

// EncodeLog renders an event as a "Program data:" log line.
func EncodeLog(event Event) (string, error) {
	data, err := Encode(event)
	if err != nil {
		return "", err
	}
	return LogPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeLog parses a "Program data:" log line back into an event.
func DecodeLog(line string) (Event, error) {
	payload, ok := strings.CutPrefix(line, LogPrefix)
	if !ok {
		return nil, fmt.Errorf("not a program data log: %q", line)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return Decode(data)
}

// Decode parses discriminator-prefixed event bytes.
func Decode(data []byte) (Event, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("event data too short: %d bytes", len(data))
	}
	disc, body := data[:8], data[8:]

	switch {
	case bytes.Equal(disc, globalUpdateDisc[:]):
		var w globalUpdateWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode GlobalUpdateEvent: %w", err)
		}
		return &GlobalUpdateEvent{
			BaseEvent:                   BaseEvent{EventType: GlobalUpdated},
			GlobalAuthority:             w.GlobalAuthority,
			MigrationAuthority:          w.MigrationAuthority,
			Status:                      w.Status,
			InitialVirtualTokenReserves: w.InitialVirtualTokenReserves,
			InitialVirtualSolReserves:   w.InitialVirtualSolReserves,
			InitialRealTokenReserves:    w.InitialRealTokenReserves,
			TokenTotalSupply:            w.TokenTotalSupply,
			FeeBps:                      w.FeeBps,
			MintDecimals:                w.MintDecimals,
		}, nil
	case bytes.Equal(disc, whitelistUpdateDisc[:]):
		var w whitelistUpdateWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode WhitelistUpdateEvent: %w", err)
		}
		return &WhitelistUpdateEvent{
			BaseEvent: NewBase(WhitelistUpdated, time.Unix(w.Timestamp, 0)),
			Creator:   w.Creator,
			Added:     w.Added,
		}, nil
	case bytes.Equal(disc, createDisc[:]):
		var w createWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode CreateEvent: %w", err)
		}
		return &CreateEvent{
			BaseEvent:        BaseEvent{EventType: CurveCreated},
			Mint:             w.Mint,
			Creator:          w.Creator,
			Name:             w.Name,
			Symbol:           w.Symbol,
			URI:              w.URI,
			StartTime:        w.StartTime,
			Reserves:         reserves(w.VirtualSolReserves, w.VirtualTokenReserves, w.RealSolReserves, w.RealTokenReserves),
			TokenTotalSupply: w.TokenTotalSupply,
		}, nil
	case bytes.Equal(disc, tradeDisc[:]):
		var w tradeWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode TradeEvent: %w", err)
		}
		return &TradeEvent{
			BaseEvent:   NewBase(Trade, time.Unix(w.Timestamp, 0)),
			Mint:        w.Mint,
			SolAmount:   w.SolAmount,
			TokenAmount: w.TokenAmount,
			FeeLamports: w.FeeLamports,
			IsBuy:       w.IsBuy,
			User:        w.User,
			Reserves:    reserves(w.VirtualSolReserves, w.VirtualTokenReserves, w.RealSolReserves, w.RealTokenReserves),
		}, nil
	case bytes.Equal(disc, completeDisc[:]):
		var w completeWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode CompleteEvent: %w", err)
		}
		return &CompleteEvent{
			BaseEvent: NewBase(CurveCompleted, time.Unix(w.Timestamp, 0)),
			User:      w.User,
			Mint:      w.Mint,
			Reserves:  reserves(w.VirtualSolReserves, w.VirtualTokenReserves, w.RealSolReserves, w.RealTokenReserves),
		}, nil
	case bytes.Equal(disc, poolCreatedDisc[:]):
		var w poolCreatedWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode PoolCreatedEvent: %w", err)
		}
		return &PoolCreatedEvent{
			BaseEvent:   NewBase(PoolCreated, time.Unix(w.Timestamp, 0)),
			Mint:        w.Mint,
			Authority:   w.Authority,
			Pool:        w.Pool,
			LPMint:      w.LPMint,
			LPAmount:    w.LPAmount,
			SolAmount:   w.SolAmount,
			TokenAmount: w.TokenAmount,
			MigrateFee:  w.MigrateFee,
		}, nil
	case bytes.Equal(disc, poolLockedDisc[:]):
		var w poolLockedWire
		if err := borsh.Deserialize(&w, body); err != nil {
			return nil, fmt.Errorf("failed to decode PoolLockedEvent: %w", err)
		}
		return &PoolLockedEvent{
			BaseEvent: NewBase(PoolLocked, time.Unix(w.Timestamp, 0)),
			Mint:      w.Mint,
			Authority: w.Authority,
			Pool:      w.Pool,
			LPMint:    w.LPMint,
			LPAmount:  w.LPAmount,
			Escrow:    w.Escrow,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %x", ErrUnknownEvent, disc)
	}
}

func reserves(vSol, vTok, rSol, rTok uint64) curve.Reserves {
	return curve.Reserves{VirtualSol: vSol, VirtualToken: vTok, RealSol: rSol, RealToken: rTok}
}
