// Package session binds an active chain address to a capability to sign for it.
//
// A Session is a plain value handed to each operation that needs to act on
// chain; nothing reads it from package state and nothing mutates it.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algomintai/algomint/internal/apperr"
)

type Signer interface {
	Address() string
	SignTransaction(ctx context.Context, tx types.Transaction) ([]byte, error)
}

type Session struct {
	Address string
	Signer  Signer
}

func (s Session) Active() bool {
	return s.Address != "" && s.Signer != nil
}

// Require returns ErrNoSession unless s can sign.
func (s Session) Require() error {
	if !s.Active() {
		return fmt.Errorf("%w", apperr.ErrNoSession)
	}
	return nil
}

// Registry maps addresses to the signers the service holds for them.
type Registry struct {
	mu      sync.RWMutex
	signers map[string]Signer
	def     string
}

func NewRegistry() *Registry {
	return &Registry{signers: map[string]Signer{}}
}

// Add registers s. The first signer added becomes the default.
func (r *Registry) Add(s Signer) error {
	addr := strings.TrimSpace(s.Address())
	if _, err := types.DecodeAddress(addr); err != nil {
		return fmt.Errorf("%w: signer address %q: %w", apperr.ErrConfiguration, addr, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.signers[addr] = s
	if r.def == "" {
		r.def = addr
	}
	return nil
}

// Resolve returns the session for address, or the default session when
// address is empty.
func (r *Registry) Resolve(address string) (Session, error) {
	address = strings.TrimSpace(address)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if address == "" {
		address = r.def
	}
	if address == "" {
		return Session{}, fmt.Errorf("%w: no signer configured", apperr.ErrNoSession)
	}
	s, ok := r.signers[address]
	if !ok {
		return Session{}, fmt.Errorf("%w: no signer for %s", apperr.ErrNoSession, address)
	}
	return Session{Address: address, Signer: s}, nil
}

func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.signers))
	for a := range r.signers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
