// Package chaintest is an in-memory ledger with the asset rules the service
// relies on, for tests that submit transactions.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
)

// Valid addresses for tests.
const (
	Creator      = "3TBQCLLBXNOY6RPTPBPIO3OK6BTRLWK3CSSQ5DGNCK4EXJLZV3W7W3FLUU"
	OtherCreator = "7EMDMQ3WFP4PXIWBF6NMIMOVI6ABJXHXKAZNCAIVI62ORC2QMZW5TOQ264"
	Stranger     = "RLFE6NTXJ6BKM7CQPS44SZTZJAXCZR3H6LJYKARGSVL2KZVQSL5XS45KUM"
)

var ErrDeclined = errors.New("signature declined")

// Signer pretends to sign for Addr.
type Signer struct {
	Addr    string
	Decline bool
}

func (s Signer) Address() string { return s.Addr }

func (s Signer) SignTransaction(_ context.Context, _ types.Transaction) ([]byte, error) {
	if s.Decline {
		return nil, ErrDeclined
	}
	return []byte("signed:" + s.Addr), nil
}

// Asset is a ledger entry.
type Asset struct {
	algo.IndexedAsset
	MetadataHash [32]byte
	CreatorHeld  uint64
}

type Chain struct {
	mu      sync.Mutex
	nextID  uint64
	nextTx  int
	assets  []*Asset
	creates int
	deletes int

	IndexErr error
}

func New() *Chain {
	return &Chain{nextID: 1000}
}

func (c *Chain) CreateAsset(ctx context.Context, signer algo.Signer, p algo.AssetCreate) (algo.Submission, error) {
	if _, err := signer.SignTransaction(ctx, types.Transaction{}); err != nil {
		return algo.Submission{}, fmt.Errorf("%w: sign: %w", apperr.ErrChainSubmission, err)
	}

	if p.Manager != "" {
		if _, err := types.DecodeAddress(p.Manager); err != nil {
			return algo.Submission{}, fmt.Errorf("%w: manager %q: %w", apperr.ErrChainSubmission, p.Manager, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.creates++
	c.nextID++
	a := &Asset{
		IndexedAsset: algo.IndexedAsset{
			ID:       c.nextID,
			Name:     p.AssetName,
			UnitName: p.UnitName,
			URL:      p.URL,
			Creator:  signer.Address(),
			Manager:  p.Manager,
			Decimals: 0,
			Total:    1,
		},
		MetadataHash: p.MetadataHash,
		CreatorHeld:  1,
	}
	c.assets = append(c.assets, a)
	tx := c.txID()
	return algo.Submission{TxID: tx, AssetID: a.ID, ConfirmedRound: uint64(c.nextTx)}, nil
}

func (c *Chain) DestroyAsset(ctx context.Context, signer algo.Signer, assetID uint64) (algo.Submission, error) {
	if _, err := signer.SignTransaction(ctx, types.Transaction{}); err != nil {
		return algo.Submission{}, fmt.Errorf("%w: sign: %w", apperr.ErrChainSubmission, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(assetID)
	if i < 0 {
		return algo.Submission{}, fmt.Errorf("%w: asset %d does not exist", apperr.ErrChainSubmission, assetID)
	}
	a := c.assets[i]
	if a.Manager == "" || a.Manager != signer.Address() {
		return algo.Submission{}, fmt.Errorf("%w: this transaction should be issued by the manager", apperr.ErrChainSubmission)
	}
	if a.CreatorHeld != a.Total {
		return algo.Submission{}, fmt.Errorf("%w: cannot destroy asset: creator is holding only %d/%d", apperr.ErrChainSubmission, a.CreatorHeld, a.Total)
	}

	c.assets = append(c.assets[:i], c.assets[i+1:]...)
	c.deletes++
	tx := c.txID()
	return algo.Submission{TxID: tx, ConfirmedRound: uint64(c.nextTx)}, nil
}

func (c *Chain) AssetsByCreator(_ context.Context, address string) ([]algo.IndexedAsset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IndexErr != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrIndex, c.IndexErr)
	}
	var out []algo.IndexedAsset
	for _, a := range c.assets {
		if a.Creator == address {
			out = append(out, a.IndexedAsset)
		}
	}
	return out, nil
}

// Seed adds an asset as if someone else had minted it.
func (c *Chain) Seed(a algo.IndexedAsset) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	a.ID = c.nextID
	c.assets = append(c.assets, &Asset{IndexedAsset: a, CreatorHeld: a.Total})
	return a.ID
}

// Transfer moves units away from the creator.
func (c *Chain) Transfer(assetID, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(assetID); i >= 0 {
		c.assets[i].CreatorHeld -= amount
	}
}

func (c *Chain) Asset(assetID uint64) (Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(assetID); i >= 0 {
		return *c.assets[i], true
	}
	return Asset{}, false
}

func (c *Chain) Creates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates
}

func (c *Chain) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

func (c *Chain) indexOf(id uint64) int {
	for i, a := range c.assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (c *Chain) txID() string {
	c.nextTx++
	return fmt.Sprintf("TX%04d", c.nextTx)
}
