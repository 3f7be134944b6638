package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"golang.org/x/sync/errgroup"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/constants"
	"github.com/algomintai/algomint/internal/session"
)

type Chain interface {
	AssetsByCreator(ctx context.Context, address string) ([]algo.IndexedAsset, error)
	DestroyAsset(ctx context.Context, signer algo.Signer, assetID uint64) (algo.Submission, error)
}

type Gateway interface {
	FetchJSON(ctx context.Context, uri string, out any) error
	ToHTTP(uri string) string
}

type CollectionResolver interface {
	Resolve(ctx context.Context, locator string) (collections.Descriptor, error)
}

const defaultCollectionFetches = 8

// Manager derives inventories live from the index service on every call.
type Manager struct {
	chain       Chain
	gateway     Gateway
	collections CollectionResolver

	collectionFetches int
}

type ManagerOption func(*Manager)

// WithCollectionFetchLimit bounds concurrent descriptor fetches per listing.
func WithCollectionFetchLimit(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.collectionFetches = n
		}
	}
}

func NewManager(chain Chain, gateway Gateway, resolver CollectionResolver, opts ...ManagerOption) *Manager {
	m := &Manager{
		chain:             chain,
		gateway:           gateway,
		collections:       resolver,
		collectionFetches: defaultCollectionFetches,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListOwned returns the single-unit assets created by address grouped by the
// collection their metadata names. Only the index query can fail the call;
// metadata and descriptor failures degrade the affected items.
func (m *Manager) ListOwned(ctx context.Context, address string) (inv Inventory, err error) {
	defer func() { recordListing(ctx, inv.Len(), err) }()

	address = strings.TrimSpace(address)
	if address == "" {
		return Inventory{}, fmt.Errorf("%w: address is required", apperr.ErrInvalidInput)
	}

	indexed, err := m.chain.AssetsByCreator(ctx, address)
	if err != nil {
		return Inventory{}, fmt.Errorf("assets: list %s: %w", address, err)
	}

	// Metadata is fetched one asset at a time, in index order.
	var owned []Asset
	for _, ia := range indexed {
		if ia.Decimals != constants.NFTDecimals || ia.Total != constants.NFTTotal {
			continue
		}
		a := Asset{
			ID:          ia.ID,
			Name:        ia.Name,
			UnitName:    ia.UnitName,
			URL:         ia.URL,
			Creator:     ia.Creator,
			Manager:     ia.Manager,
			Destroyable: destroyable(ia.Manager, address),
			State:       StateListed,
		}
		if strings.TrimSpace(ia.URL) != "" {
			md, err := m.fetchMetadata(ctx, ia.URL)
			if err != nil {
				log.Warn("asset metadata unavailable", "asset_id", ia.ID, "url", ia.URL, "error", err)
			} else {
				a.Metadata = md
				if md.Image != "" {
					a.Image = m.gateway.ToHTTP(md.Image)
				}
			}
		}
		owned = append(owned, a)
	}

	keys, byKey := group(owned)
	descriptors := m.fetchCollections(ctx, keys)

	inv = Inventory{Address: address, Groups: make([]Group, 0, len(keys))}
	for _, k := range keys {
		inv.Groups = append(inv.Groups, Group{Key: k, Collection: descriptors[k], Assets: byKey[k]})
	}
	return inv, nil
}

// group buckets assets by collection locator in first-appearance order.
func group(owned []Asset) ([]string, map[string][]Asset) {
	var keys []string
	byKey := map[string][]Asset{}
	for _, a := range owned {
		k := constants.NoCollectionKey
		if a.Metadata != nil && a.Metadata.Collection != "" {
			k = a.Metadata.Collection
		}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], a)
	}
	return keys, byKey
}

// fetchCollections resolves each distinct locator once, concurrently. A failed
// locator maps to nil.
func (m *Manager) fetchCollections(ctx context.Context, keys []string) map[string]*collections.Descriptor {
	results := make([]*collections.Descriptor, len(keys))

	var g errgroup.Group
	g.SetLimit(m.collectionFetches)
	for i, k := range keys {
		if k == constants.NoCollectionKey {
			continue
		}
		g.Go(func() error {
			d, err := m.collections.Resolve(ctx, k)
			if err != nil {
				log.Warn("collection descriptor unavailable", "locator", k, "error", err)
				return nil
			}
			results[i] = &d
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*collections.Descriptor, len(keys))
	for i, k := range keys {
		out[k] = results[i]
	}
	return out
}

// Destroy submits an asset-destroy for assetID. Rejections come back as
// ErrChainSubmission with the chain's message.
func (m *Manager) Destroy(ctx context.Context, sess session.Session, assetID uint64) (txID string, err error) {
	defer func() { recordDestroy(ctx, err) }()

	if err := sess.Require(); err != nil {
		return "", fmt.Errorf("assets: destroy: %w", err)
	}
	if assetID == 0 {
		return "", fmt.Errorf("%w: asset id is required", apperr.ErrInvalidInput)
	}

	sub, err := m.chain.DestroyAsset(ctx, sess.Signer, assetID)
	if err != nil {
		return "", fmt.Errorf("assets: destroy %d: %w", assetID, err)
	}

	log.Info("asset destroyed", "asset_id", assetID, "tx_id", sub.TxID, "address", sess.Address)
	return sub.TxID, nil
}

func destroyable(manager, address string) bool {
	return manager != "" && manager != constants.ZeroAddress && manager == address
}
