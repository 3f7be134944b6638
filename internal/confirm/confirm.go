// Package confirm issues short one-time codes that gate irreversible actions.
package confirm

import (
	crand "crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/algomintai/algomint/internal/apperr"
)

const (
	alphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0 O I 1
	CodeLength = 8

	DefaultTTL = 60 * time.Second
)

var (
	ErrMismatch = fmt.Errorf("%w: code does not match", apperr.ErrConfirmation)
	ErrExpired  = fmt.Errorf("%w: code expired", apperr.ErrConfirmation)
	ErrUsed     = fmt.Errorf("%w: code already used", apperr.ErrConfirmation)
)

func GenerateCode() (string, error) {
	b := make([]byte, CodeLength)
	if _, err := crand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b), nil
}

func HashCode(code string) []byte {
	h := sha256.Sum256([]byte(code))
	return h[:]
}

// Challenge is an issued code. Only its hash is kept.
type Challenge struct {
	hash      []byte
	expiresAt time.Time
	used      bool
}

// Issue returns a fresh code and the challenge that accepts it until now+ttl.
func Issue(now time.Time, ttl time.Duration) (string, *Challenge, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	code, err := GenerateCode()
	if err != nil {
		return "", nil, fmt.Errorf("confirm: generate code: %w", err)
	}
	return code, &Challenge{hash: HashCode(code), expiresAt: now.Add(ttl)}, nil
}

func (c *Challenge) ExpiresAt() time.Time { return c.expiresAt }

// Redeem consumes the challenge if code matches. A challenge is spent by its
// first successful redeem and by expiry; a wrong code leaves it usable.
func (c *Challenge) Redeem(code string, now time.Time) error {
	if c == nil {
		return errors.Join(ErrMismatch, errors.New("no challenge issued"))
	}
	if c.used {
		return ErrUsed
	}
	if !now.Before(c.expiresAt) {
		return ErrExpired
	}
	if subtle.ConstantTimeCompare(HashCode(code), c.hash) != 1 {
		return ErrMismatch
	}
	c.used = true
	return nil
}
