// internal/storage/redis/redis.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// Store persists accounts in Redis, one key per account holding its binary
// layout, plus a set indexing every curve mint.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore namespaces keys by program id so several deployments can share a database.
func NewStore(client redis.UniversalClient, programID solana.PublicKey) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client, prefix: "launchpad:" + programID.String()}, nil
}

func (s *Store) globalKey() string    { return s.prefix + ":global" }
func (s *Store) whitelistKey() string { return s.prefix + ":whitelist" }
func (s *Store) indexKey() string     { return s.prefix + ":curves" }

func (s *Store) curveKey(mint string) string {
	return s.prefix + ":curve:" + mint
}

func (s *Store) load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) LoadGlobal(ctx context.Context) (*state.Global, error) {
	data, err := s.load(ctx, s.globalKey())
	if err != nil {
		return nil, err
	}
	g := new(state.Global)
	if err := g.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode global: %w", err)
	}
	return g, nil
}

func (s *Store) LoadWhitelist(ctx context.Context) (*state.Whitelist, error) {
	data, err := s.load(ctx, s.whitelistKey())
	if err != nil {
		return nil, err
	}
	w := new(state.Whitelist)
	if err := w.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode whitelist: %w", err)
	}
	return w, nil
}

func (s *Store) LoadCurve(ctx context.Context, mint solana.PublicKey) (*state.BondingCurve, error) {
	data, err := s.load(ctx, s.curveKey(mint.String()))
	if err != nil {
		return nil, err
	}
	b := new(state.BondingCurve)
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode curve %s: %w", mint, err)
	}
	return b, nil
}

func (s *Store) ListCurves(ctx context.Context) ([]*state.BondingCurve, error) {
	mints, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list curves index: %w", err)
	}
	if len(mints) == 0 {
		return []*state.BondingCurve{}, nil
	}
	sort.Strings(mints)

	keys := make([]string, len(mints))
	for i, m := range mints {
		keys[i] = s.curveKey(m)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget curves: %w", err)
	}

	out := make([]*state.BondingCurve, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		b := new(state.BondingCurve)
		if err := b.UnmarshalBinary([]byte(raw)); err != nil {
			return nil, fmt.Errorf("decode curve %s: %w", mints[i], err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Commit writes the batch in one MULTI/EXEC. A new curve is written under
// WATCH on its key: if the key exists, or appears before EXEC, nothing in
// the batch is written and ErrExists is returned.
func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	type write struct {
		key  string
		data []byte
	}
	var writes []write

	if batch.Global != nil {
		data, err := batch.Global.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode global: %w", err)
		}
		writes = append(writes, write{s.globalKey(), data})
	}
	if batch.Whitelist != nil {
		data, err := batch.Whitelist.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode whitelist: %w", err)
		}
		writes = append(writes, write{s.whitelistKey(), data})
	}
	var mint string
	if batch.Curve != nil {
		mint = batch.Curve.Mint.String()
		data, err := batch.Curve.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode curve: %w", err)
		}
		writes = append(writes, write{s.curveKey(mint), data})
	}

	apply := func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			pipe.Set(ctx, w.key, w.data, 0)
		}
		if mint != "" {
			pipe.SAdd(ctx, s.indexKey(), mint)
		}
		return nil
	}

	if batch.Curve == nil || !batch.NewCurve {
		if _, err := s.client.TxPipelined(ctx, apply); err != nil {
			return fmt.Errorf("commit accounts: %w", err)
		}
		return nil
	}

	key := s.curveKey(mint)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check curve %s: %w", mint, err)
		}
		if n > 0 {
			return storage.ErrExists
		}
		if _, err := tx.TxPipelined(ctx, apply); err != nil {
			return fmt.Errorf("commit accounts: %w", err)
		}
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrExists
	}
	return err
}
