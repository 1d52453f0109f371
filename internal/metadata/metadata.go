// internal/metadata/metadata.go
package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	ErrInvalid       = errors.New("invalid token metadata")
	ErrAlreadyExists = errors.New("metadata already recorded for mint")
	ErrNotFound      = errors.New("metadata not found")
)

// Metadata is the display information attached to a launched mint.
type Metadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// Validate enforces the length limits of the token metadata program.
func (m Metadata) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalid)
	case m.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalid)
	case len(m.Name) > MaxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalid, MaxNameLength)
	case len(m.Symbol) > MaxSymbolLength:
		return fmt.Errorf("%w: symbol longer than %d bytes", ErrInvalid, MaxSymbolLength)
	case len(m.URI) > MaxURILength:
		return fmt.Errorf("%w: uri longer than %d bytes", ErrInvalid, MaxURILength)
	case !utf8.ValidString(m.Name) || !utf8.ValidString(m.Symbol) || !utf8.ValidString(m.URI):
		return fmt.Errorf("%w: not valid utf-8", ErrInvalid)
	}
	return nil
}

// Registry records mint metadata with the external metadata program.
type Registry interface {
	Record(ctx context.Context, mint solana.PublicKey, md Metadata) error
	Lookup(ctx context.Context, mint solana.PublicKey) (Metadata, error)
	// Forget drops a record whose launch was rolled back.
	Forget(ctx context.Context, mint solana.PublicKey) error
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[solana.PublicKey]Metadata
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[solana.PublicKey]Metadata)}
}

func (r *MemoryRegistry) Record(ctx context.Context, mint solana.PublicKey, md Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := md.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[mint]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, mint)
	}
	r.entries[mint] = md
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, mint solana.PublicKey) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.entries[mint]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return md, nil
}

func (r *MemoryRegistry) Forget(_ context.Context, mint solana.PublicKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, mint)
	return nil
}
