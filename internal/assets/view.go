package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/confirm"
	"github.com/algomintai/algomint/internal/session"
)

type Destroyer interface {
	Destroy(ctx context.Context, sess session.Session, assetID uint64) (string, error)
}

type card struct {
	asset     Asset
	challenge *confirm.Challenge
}

// View holds the per-card destroy state for one address's inventory:
//
//	Listed -> Confirming -> Destroying -> Removed
//	              |              |
//	              +--> Listed <--+  (cancel, expiry, failure)
type View struct {
	mu        sync.Mutex
	destroyer Destroyer
	inv       Inventory
	cards     map[uint64]*card
	ttl       time.Duration
	now       func() time.Time
}

type ViewOption func(*View)

func WithConfirmationTTL(d time.Duration) ViewOption {
	return func(v *View) { v.ttl = d }
}

func WithClock(now func() time.Time) ViewOption {
	return func(v *View) { v.now = now }
}

func NewView(inv Inventory, destroyer Destroyer, opts ...ViewOption) *View {
	v := &View{destroyer: destroyer, ttl: confirm.DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	v.load(inv)
	return v
}

// Refresh replaces the listing. Cards still present keep an in-progress
// confirmation or destroy and their last error.
func (v *View) Refresh(inv Inventory) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev := v.cards
	v.load(inv)
	for id, c := range v.cards {
		old, ok := prev[id]
		if !ok {
			continue
		}
		c.asset.LastError = old.asset.LastError
		if old.asset.State != StateListed {
			c.asset.State = old.asset.State
			c.challenge = old.challenge
		}
	}
}

func (v *View) load(inv Inventory) {
	v.inv = inv
	v.cards = map[uint64]*card{}
	for _, g := range inv.Groups {
		for _, a := range g.Assets {
			a.State = StateListed
			v.cards[a.ID] = &card{asset: a}
		}
	}
}

// Snapshot returns the listing with current card states. Removed assets are
// left out and groups that become empty are dropped.
func (v *View) Snapshot() Inventory {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := Inventory{Address: v.inv.Address, Groups: make([]Group, 0, len(v.inv.Groups))}
	for _, g := range v.inv.Groups {
		ng := Group{Key: g.Key, Collection: g.Collection}
		for _, a := range g.Assets {
			c := v.cards[a.ID]
			if c == nil || c.asset.State == StateRemoved {
				continue
			}
			ng.Assets = append(ng.Assets, c.asset)
		}
		if len(ng.Assets) > 0 {
			out.Groups = append(out.Groups, ng)
		}
	}
	return out
}

func (v *View) Card(id uint64) (Asset, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cards[id]
	if !ok {
		return Asset{}, false
	}
	return c.asset, true
}

// RequestDestroy moves a card to Confirming and returns the code that
// confirms it.
func (v *View) RequestDestroy(id uint64) (string, time.Time, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, err := v.card(id)
	if err != nil {
		return "", time.Time{}, err
	}
	if !c.asset.Destroyable {
		return "", time.Time{}, fmt.Errorf("%w: asset %d has no manager this address controls", apperr.ErrInvalidInput, id)
	}
	if c.asset.State != StateListed {
		return "", time.Time{}, fmt.Errorf("%w: asset %d is %s", apperr.ErrConfirmation, id, c.asset.State)
	}

	code, ch, err := confirm.Issue(v.now(), v.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	c.challenge = ch
	c.asset.State = StateConfirming
	c.asset.LastError = ""
	return code, ch.ExpiresAt(), nil
}

func (v *View) Cancel(id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, err := v.card(id)
	if err != nil {
		return err
	}
	if c.asset.State != StateConfirming {
		return fmt.Errorf("%w: asset %d is %s", apperr.ErrConfirmation, id, c.asset.State)
	}
	c.challenge = nil
	c.asset.State = StateListed
	return nil
}

// ConfirmDestroy redeems code and submits the destroy. On success the card
// is removed; on failure it returns to Listed carrying the error.
func (v *View) ConfirmDestroy(ctx context.Context, sess session.Session, id uint64, code string) (string, error) {
	v.mu.Lock()
	c, err := v.card(id)
	if err != nil {
		v.mu.Unlock()
		return "", err
	}
	if c.asset.State != StateConfirming {
		v.mu.Unlock()
		return "", fmt.Errorf("%w: asset %d is %s", apperr.ErrConfirmation, id, c.asset.State)
	}
	if err := c.challenge.Redeem(code, v.now()); err != nil {
		if !errors.Is(err, confirm.ErrMismatch) {
			c.challenge = nil
			c.asset.State = StateListed
			c.asset.LastError = err.Error()
		}
		v.mu.Unlock()
		return "", err
	}
	c.challenge = nil
	c.asset.State = StateDestroying
	v.mu.Unlock()

	txID, err := v.destroyer.Destroy(ctx, sess, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.cards[id]; ok {
		c = cur
	}
	if err != nil {
		c.asset.State = StateListed
		c.asset.LastError = err.Error()
		return "", err
	}
	c.asset.State = StateRemoved
	c.asset.LastError = ""
	return txID, nil
}

func (v *View) card(id uint64) (*card, error) {
	c, ok := v.cards[id]
	if !ok || c.asset.State == StateRemoved {
		return nil, fmt.Errorf("%w: asset %d", apperr.ErrNotFound, id)
	}
	return c, nil
}
