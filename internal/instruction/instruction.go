// internal/instruction/instruction.go
package instruction

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction discriminator")
	ErrShortData          = errors.New("instruction data too short")
	ErrTrailingData       = errors.New("unexpected trailing instruction data")
)

// Discriminator returns the 8-byte Anchor prefix for a snake_case instruction name.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

const (
	NameInitialize         = "initialize"
	NameSetParams          = "set_params"
	NameCreatePool         = "create_pool"
	NameLockPool           = "lock_pool"
	NameUpdateWl           = "update_wl"
	NameCreateBondingCurve = "create_bonding_curve"
	NameSwap               = "swap"
)

// Instruction is one decoded launchpad instruction.
type Instruction interface {
	Name() string
	encodeArgs(enc *bin.Encoder) error
	decodeArgs(dec *bin.Decoder) error
}

// GlobalSettingsInput carries optional global settings; nil fields are absent.
type GlobalSettingsInput struct {
	InitialVirtualTokenReserves *uint64
	InitialVirtualSolReserves   *uint64
	InitialRealTokenReserves    *uint64
	TokenTotalSupply            *uint64
	FeeBps                      *uint64
	MintDecimals                *uint8
	MigrateFeeAmount            *uint64
	FeeReceiver                 *solana.PublicKey
	Status                      *uint8
	WhitelistEnabled            *bool
	MeteoraConfig               *solana.PublicKey
}

type WlParams struct {
	AddWl   bool
	Creator solana.PublicKey
}

type CreateBondingCurveParams struct {
	Name      string
	Symbol    string
	URI       string
	StartTime *int64
}

type SwapParams struct {
	BaseIn        bool
	ExactInAmount uint64
	MinOutAmount  uint64
}

// PoolAmounts are carried by the migration instructions for wire
// compatibility; the program derives the real amounts from the curve.
type PoolAmounts struct {
	TokenAAmount uint64
	TokenBAmount uint64
}

type Initialize struct{ Params GlobalSettingsInput }
type SetParams struct{ Params GlobalSettingsInput }
type UpdateWl struct{ Params WlParams }
type CreateBondingCurve struct{ Params CreateBondingCurveParams }
type Swap struct{ Params SwapParams }
type CreatePool struct{ PoolAmounts }
type LockPool struct{ PoolAmounts }

func (*Initialize) Name() string { return NameInitialize }
func (*SetParams) Name() string { return NameSetParams }
func (*UpdateWl) Name() string { return NameUpdateWl }
func (*CreateBondingCurve) Name() string { return NameCreateBondingCurve }
func (*Swap) Name() string { return NameSwap }
func (*CreatePool) Name() string { return NameCreatePool }
func (*LockPool) Name() string { return NameLockPool }

var registry = map[[8]byte]func() Instruction{
	Discriminator(NameInitialize):         func() Instruction { return new(Initialize) },
	Discriminator(NameSetParams):          func() Instruction { return new(SetParams) },
	Discriminator(NameUpdateWl):           func() Instruction { return new(UpdateWl) },
	Discriminator(NameCreateBondingCurve): func() Instruction { return new(CreateBondingCurve) },
	Discriminator(NameSwap):               func() Instruction { return new(Swap) },
	Discriminator(NameCreatePool):         func() Instruction { return new(CreatePool) },
	Discriminator(NameLockPool):           func() Instruction { return new(LockPool) },
}

// Encode returns discriminator followed by the Borsh arguments.
func Encode(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	d := Discriminator(ix.Name())
	if err := enc.WriteBytes(d[:], false); err != nil {
		return nil, err
	}
	if err := ix.encodeArgs(enc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ix.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses instruction data produced by Encode or an Anchor client.
func Decode(data []byte) (Instruction, error) {
	if len(data) < 8 {
		return nil, ErrShortData
	}
	var d [8]byte
	copy(d[:], data[:8])
	ctor, ok := registry[d]
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownInstruction, d)
	}
	ix := ctor()
	dec := bin.NewBorshDecoder(data[8:])
	if err := ix.decodeArgs(dec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ix.Name(), err)
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after %s", ErrTrailingData, dec.Remaining(), ix.Name())
	}
	return ix, nil
}

func (ix *Initialize) encodeArgs(enc *bin.Encoder) error { return ix.Params.encode(enc) }
func (ix *Initialize) decodeArgs(dec *bin.Decoder) error { return ix.Params.decode(dec) }
func (ix *SetParams) encodeArgs(enc *bin.Encoder) error { return ix.Params.encode(enc) }
func (ix *SetParams) decodeArgs(dec *bin.Decoder) error { return ix.Params.decode(dec) }
func (ix *CreatePool) encodeArgs(enc *bin.Encoder) error { return ix.PoolAmounts.encode(enc) }
func (ix *CreatePool) decodeArgs(dec *bin.Decoder) error { return ix.PoolAmounts.decode(dec) }
func (ix *LockPool) encodeArgs(enc *bin.Encoder) error { return ix.PoolAmounts.encode(enc) }
func (ix *LockPool) decodeArgs(dec *bin.Decoder) error { return ix.PoolAmounts.decode(dec) }

func (ix *UpdateWl) encodeArgs(enc *bin.Encoder) error {
	if err := enc.WriteBool(ix.Params.AddWl); err != nil {
		return err
	}
	return writeKey(enc, ix.Params.Creator)
}

func (ix *UpdateWl) decodeArgs(dec *bin.Decoder) (err error) {
	if ix.Params.AddWl, err = dec.ReadBool(); err != nil {
		return err
	}
	ix.Params.Creator, err = readKey(dec)
	return err
}

func (ix *CreateBondingCurve) encodeArgs(enc *bin.Encoder) error {
	p := ix.Params
	for _, s := range []string{p.Name, p.Symbol, p.URI} {
		if err := enc.WriteRustString(s); err != nil {
			return err
		}
	}
	if err := enc.WriteOption(p.StartTime != nil); err != nil {
		return err
	}
	if p.StartTime != nil {
		return enc.WriteInt64(*p.StartTime, bin.LE)
	}
	return nil
}

func (ix *CreateBondingCurve) decodeArgs(dec *bin.Decoder) (err error) {
	p := &ix.Params
	if p.Name, err = dec.ReadRustString(); err != nil {
		return err
	}
	if p.Symbol, err = dec.ReadRustString(); err != nil {
		return err
	}
	if p.URI, err = dec.ReadRustString(); err != nil {
		return err
	}
	some, err := dec.ReadOption()
	if err != nil || !some {
		return err
	}
	v, err := dec.ReadInt64(bin.LE)
	if err != nil {
		return err
	}
	p.StartTime = &v
	return nil
}

func (ix *Swap) encodeArgs(enc *bin.Encoder) error {
	if err := enc.WriteBool(ix.Params.BaseIn); err != nil {
		return err
	}
	if err := enc.WriteUint64(ix.Params.ExactInAmount, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(ix.Params.MinOutAmount, bin.LE)
}

func (ix *Swap) decodeArgs(dec *bin.Decoder) (err error) {
	if ix.Params.BaseIn, err = dec.ReadBool(); err != nil {
		return err
	}
	if ix.Params.ExactInAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	ix.Params.MinOutAmount, err = dec.ReadUint64(bin.LE)
	return err
}

func (a *PoolAmounts) encode(enc *bin.Encoder) error {
	if err := enc.WriteUint64(a.TokenAAmount, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(a.TokenBAmount, bin.LE)
}

func (a *PoolAmounts) decode(dec *bin.Decoder) (err error) {
	if a.TokenAAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	a.TokenBAmount, err = dec.ReadUint64(bin.LE)
	return err
}

func (s *GlobalSettingsInput) encode(enc *bin.Encoder) error {
	for _, v := range []*uint64{s.InitialVirtualTokenReserves, s.InitialVirtualSolReserves,
		s.InitialRealTokenReserves, s.TokenTotalSupply, s.FeeBps} {
		if err := writeOptU64(enc, v); err != nil {
			return err
		}
	}
	if err := writeOptU8(enc, s.MintDecimals); err != nil {
		return err
	}
	if err := writeOptU64(enc, s.MigrateFeeAmount); err != nil {
		return err
	}
	if err := writeOptKey(enc, s.FeeReceiver); err != nil {
		return err
	}
	if err := writeOptU8(enc, s.Status); err != nil {
		return err
	}
	if err := enc.WriteOption(s.WhitelistEnabled != nil); err != nil {
		return err
	}
	if s.WhitelistEnabled != nil {
		if err := enc.WriteBool(*s.WhitelistEnabled); err != nil {
			return err
		}
	}
	return writeOptKey(enc, s.MeteoraConfig)
}

func (s *GlobalSettingsInput) decode(dec *bin.Decoder) (err error) {
	for _, dst := range []**uint64{&s.InitialVirtualTokenReserves, &s.InitialVirtualSolReserves,
		&s.InitialRealTokenReserves, &s.TokenTotalSupply, &s.FeeBps} {
		if *dst, err = readOptU64(dec); err != nil {
			return err
		}
	}
	if s.MintDecimals, err = readOptU8(dec); err != nil {
		return err
	}
	if s.MigrateFeeAmount, err = readOptU64(dec); err != nil {
		return err
	}
	if s.FeeReceiver, err = readOptKey(dec); err != nil {
		return err
	}
	if s.Status, err = readOptU8(dec); err != nil {
		return err
	}
	some, err := dec.ReadOption()
	if err != nil {
		return err
	}
	if some {
		v, err := dec.ReadBool()
		if err != nil {
			return err
		}
		s.WhitelistEnabled = &v
	}
	s.MeteoraConfig, err = readOptKey(dec)
	return err
}

func writeKey(enc *bin.Encoder, k solana.PublicKey) error {
	return enc.WriteBytes(k[:], false)
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func writeOptU64(enc *bin.Encoder, v *uint64) error {
	if err := enc.WriteOption(v != nil); err != nil || v == nil {
		return err
	}
	return enc.WriteUint64(*v, bin.LE)
}

func readOptU64(dec *bin.Decoder) (*uint64, error) {
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	v, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeOptU8(enc *bin.Encoder, v *uint8) error {
	if err := enc.WriteOption(v != nil); err != nil || v == nil {
		return err
	}
	return enc.WriteUint8(*v)
}

func readOptU8(dec *bin.Decoder) (*uint8, error) {
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	v, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeOptKey(enc *bin.Encoder, k *solana.PublicKey) error {
	if err := enc.WriteOption(k != nil); err != nil || k == nil {
		return err
	}
	return writeKey(enc, *k)
}

func readOptKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	k, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
