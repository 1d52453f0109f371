// internal/storage/redis/nonces.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

// Nonces records signed-request nonces so every API instance sharing the
// database rejects a replay.
type Nonces struct {
	client redis.Cmdable
	prefix string
}

func NewNonces(client redis.Cmdable, programID solana.PublicKey) (*Nonces, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Nonces{client: client, prefix: "launchpad:" + programID.String() + ":nonce:"}, nil
}

// Claim sets the nonce key with SET NX, so exactly one caller sees true until ttl passes.
func (n *Nonces) Claim(ctx context.Context, signer solana.PublicKey, nonce string, ttl time.Duration) (bool, error) {
	ok, err := n.client.SetNX(ctx, n.prefix+signer.String()+":"+nonce, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim nonce: %w", err)
	}
	return ok, nil
}
