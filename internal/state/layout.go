// internal/state/layout.go
package state

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Curve records written before migration tracking existed end right after
// the bump byte. Newer records append a version byte and the migration fields.
const (
	bondingCurveLayoutV1 uint8 = 1
	bondingCurveLayoutV2 uint8 = 2
)

var (
	ErrDiscriminator   = errors.New("account discriminator mismatch")
	ErrLayoutVersion   = errors.New("unsupported account layout version")
	ErrTrailingBytes   = errors.New("unexpected trailing bytes in account data")
	ErrWhitelistTooBig = errors.New("whitelist exceeds maximum size")
)

// MaxWhitelistCreators bounds decoding of untrusted whitelist data.
const MaxWhitelistCreators = 10_000

var (
	GlobalDiscriminator       = AccountDiscriminator("Global")
	WhitelistDiscriminator    = AccountDiscriminator("Whitelist")
	BondingCurveDiscriminator = AccountDiscriminator("BondingCurve")
)

// AccountDiscriminator returns the 8-byte prefix Anchor puts in front of an account.
func AccountDiscriminator(name string) [8]byte {
	return discriminator("account:" + name)
}

func discriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// MarshalBinary encodes the global record in its persisted layout.
func (g *Global) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	w := &writer{enc: enc}
	w.bytes(GlobalDiscriminator[:])
	w.u8(uint8(g.Status))
	w.boolean(g.Initialized)
	w.key(g.GlobalAuthority)
	w.key(g.MigrationAuthority)
	w.u64(g.MigrateFeeAmount)
	w.key(g.FeeReceiver)
	w.u64(g.InitialVirtualTokenReserves)
	w.u64(g.InitialVirtualSolReserves)
	w.u64(g.InitialRealTokenReserves)
	w.u64(g.TokenTotalSupply)
	w.u64(g.FeeBps)
	w.u8(g.MintDecimals)
	w.key(g.MeteoraConfig)
	w.boolean(g.WhitelistEnabled)
	if w.err != nil {
		return nil, fmt.Errorf("failed to encode global: %w", w.err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a global record.
func (g *Global) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, GlobalDiscriminator)
	if err != nil {
		return err
	}
	var out Global
	out.Status = ProgramStatus(r.u8())
	out.Initialized = r.boolean()
	out.GlobalAuthority = r.key()
	out.MigrationAuthority = r.key()
	out.MigrateFeeAmount = r.u64()
	out.FeeReceiver = r.key()
	out.InitialVirtualTokenReserves = r.u64()
	out.InitialVirtualSolReserves = r.u64()
	out.InitialRealTokenReserves = r.u64()
	out.TokenTotalSupply = r.u64()
	out.FeeBps = r.u64()
	out.MintDecimals = r.u8()
	out.MeteoraConfig = r.key()
	out.WhitelistEnabled = r.boolean()
	if err := r.finish(); err != nil {
		return fmt.Errorf("failed to decode global: %w", err)
	}
	*g = out
	return nil
}

func (w *Whitelist) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	wr := &writer{enc: enc}
	wr.bytes(WhitelistDiscriminator[:])
	wr.boolean(w.Initialized)
	wr.u32(uint32(len(w.Creators)))
	for _, c := range w.Creators {
		wr.key(c)
	}
	if wr.err != nil {
		return nil, fmt.Errorf("failed to encode whitelist: %w", wr.err)
	}
	return buf.Bytes(), nil
}

func (w *Whitelist) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, WhitelistDiscriminator)
	if err != nil {
		return err
	}
	var out Whitelist
	out.Initialized = r.boolean()
	n := r.u32()
	if r.err == nil && n > MaxWhitelistCreators {
		return ErrWhitelistTooBig
	}
	out.Creators = make([]solana.PublicKey, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		out.Creators = append(out.Creators, r.key())
	}
	if err := r.finish(); err != nil {
		return fmt.Errorf("failed to decode whitelist: %w", err)
	}
	*w = out
	return nil
}

// MarshalBinary always writes the current (v2) curve layout.
func (b *BondingCurve) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	w := &writer{enc: enc}
	w.bytes(BondingCurveDiscriminator[:])
	w.key(b.Mint)
	w.key(b.Creator)
	w.u64(b.InitialVirtualTokenReserves)
	w.u64(b.VirtualSol)
	w.u64(b.VirtualToken)
	w.u64(b.RealSol)
	w.u64(b.RealToken)
	w.u64(b.TokenTotalSupply)
	w.i64(b.StartTime)
	w.boolean(b.Complete)
	w.u8(b.Bump)

	w.u8(bondingCurveLayoutV2)
	w.u8(uint8(b.Migration.Stage))
	w.key(b.Migration.Pool)
	w.key(b.Migration.LPMint)
	w.u64(b.Migration.LPAmount)
	if w.err != nil {
		return nil, fmt.Errorf("failed to encode bonding curve: %w", w.err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary accepts both the original layout and the versioned one.
func (b *BondingCurve) UnmarshalBinary(data []byte) error {
	r, err := newReader(data, BondingCurveDiscriminator)
	if err != nil {
		return err
	}
	var out BondingCurve
	out.Mint = r.key()
	out.Creator = r.key()
	out.InitialVirtualTokenReserves = r.u64()
	out.VirtualSol = r.u64()
	out.VirtualToken = r.u64()
	out.RealSol = r.u64()
	out.RealToken = r.u64()
	out.TokenTotalSupply = r.u64()
	out.StartTime = r.i64()
	out.Complete = r.boolean()
	out.Bump = r.u8()

	if r.err == nil && r.dec.Remaining() > 0 {
		switch version := r.u8(); version {
		case bondingCurveLayoutV2:
			out.Migration.Stage = MigrationStage(r.u8())
			out.Migration.Pool = r.key()
			out.Migration.LPMint = r.key()
			out.Migration.LPAmount = r.u64()
			if out.Migration.Stage > MigrationPending {
				return fmt.Errorf("failed to decode bonding curve: unknown migration stage %d", out.Migration.Stage)
			}
		default:
			return fmt.Errorf("%w: bonding curve v%d", ErrLayoutVersion, version)
		}
	}
	if err := r.finish(); err != nil {
		return fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	*b = out
	return nil
}

// MarshalBinaryV1 writes the original layout. Only pre-migration records can
// be represented in it.
func (b *BondingCurve) MarshalBinaryV1() ([]byte, error) {
	if b.Migration.Stage != MigrationNone {
		return nil, fmt.Errorf("%w: v%d cannot carry migration state", ErrLayoutVersion, bondingCurveLayoutV1)
	}
	data, err := b.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return data[:len(data)-(1+1+32+32+8)], nil
}

type writer struct {
	enc *bin.Encoder
	err error
}

func (w *writer) bytes(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *writer) key(k solana.PublicKey) { w.bytes(k[:]) }

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *writer) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, bin.LE)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, bin.LE)
	}
}

func (w *writer) i64(v int64) {
	if w.err == nil {
		w.err = w.enc.WriteInt64(v, bin.LE)
	}
}

type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(data []byte, want [8]byte) (*reader, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], want[:]) {
		return nil, ErrDiscriminator
	}
	return &reader{dec: bin.NewBorshDecoder(data[8:])}, nil
}

func (r *reader) key() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.err = err
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *reader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.err = err
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(bin.LE)
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(bin.LE)
	r.err = err
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(bin.LE)
	r.err = err
	return v
}

func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.dec.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}
