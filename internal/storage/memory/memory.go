// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// Store keeps accounts in process memory. Records are held in their binary
// layout so every read goes through the same codec as the Redis store.
type Store struct {
	mu        sync.RWMutex
	global    []byte
	whitelist []byte
	curves    map[solana.PublicKey][]byte
}

func NewStore() *Store {
	return &Store{curves: make(map[solana.PublicKey][]byte)}
}

func (s *Store) LoadGlobal(_ context.Context) (*state.Global, error) {
	s.mu.RLock()
	data := s.global
	s.mu.RUnlock()
	if data == nil {
		return nil, storage.ErrNotFound
	}
	g := new(state.Global)
	if err := g.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode global: %w", err)
	}
	return g, nil
}

func (s *Store) LoadWhitelist(_ context.Context) (*state.Whitelist, error) {
	s.mu.RLock()
	data := s.whitelist
	s.mu.RUnlock()
	if data == nil {
		return nil, storage.ErrNotFound
	}
	w := new(state.Whitelist)
	if err := w.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode whitelist: %w", err)
	}
	return w, nil
}

func (s *Store) LoadCurve(_ context.Context, mint solana.PublicKey) (*state.BondingCurve, error) {
	s.mu.RLock()
	data, ok := s.curves[mint]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	b := new(state.BondingCurve)
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode curve %s: %w", mint, err)
	}
	return b, nil
}

// ListCurves returns every curve ordered by mint.
func (s *Store) ListCurves(ctx context.Context) ([]*state.BondingCurve, error) {
	s.mu.RLock()
	mints := make([]solana.PublicKey, 0, len(s.curves))
	for mint := range s.curves {
		mints = append(mints, mint)
	}
	s.mu.RUnlock()

	sort.Slice(mints, func(i, j int) bool { return mints[i].String() < mints[j].String() })

	out := make([]*state.BondingCurve, 0, len(mints))
	for _, mint := range mints {
		b, err := s.LoadCurve(ctx, mint)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var global, whitelist, curve []byte
	var err error
	if batch.Global != nil {
		if global, err = batch.Global.MarshalBinary(); err != nil {
			return fmt.Errorf("failed to encode global: %w", err)
		}
	}
	if batch.Whitelist != nil {
		if whitelist, err = batch.Whitelist.MarshalBinary(); err != nil {
			return fmt.Errorf("failed to encode whitelist: %w", err)
		}
	}
	if batch.Curve != nil {
		if curve, err = batch.Curve.MarshalBinary(); err != nil {
			return fmt.Errorf("failed to encode curve: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.Curve != nil && batch.NewCurve {
		if _, exists := s.curves[batch.Curve.Mint]; exists {
			return storage.ErrExists
		}
	}
	if global != nil {
		s.global = global
	}
	if whitelist != nil {
		s.whitelist = whitelist
	}
	if curve != nil {
		s.curves[batch.Curve.Mint] = curve
	}
	return nil
}
