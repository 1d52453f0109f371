// internal/server/nonce.go
package server

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

type nonceKey struct {
	signer solana.PublicKey
	nonce  string
}

// MemoryNonces is an in-process NonceStore for a single API instance.
type MemoryNonces struct {
	mu     sync.Mutex
	seen   map[nonceKey]time.Time
	now    func() time.Time
	claims int
}

func NewMemoryNonces() *MemoryNonces {
	return &MemoryNonces{seen: make(map[nonceKey]time.Time), now: time.Now}
}

func (m *MemoryNonces) Claim(_ context.Context, signer solana.PublicKey, nonce string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.claims++
	if m.claims%256 == 0 {
		m.prune(now)
	}

	key := nonceKey{signer: signer, nonce: nonce}
	if expires, ok := m.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	m.seen[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryNonces) prune(now time.Time) {
	for key, expires := range m.seen {
		if !now.Before(expires) {
			delete(m.seen, key)
		}
	}
}

// Len reports the number of remembered nonces.
func (m *MemoryNonces) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
