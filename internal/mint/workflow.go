package mint

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/constants"
	"github.com/algomintai/algomint/internal/ipfs"
	"github.com/algomintai/algomint/internal/session"
)

type Chain interface {
	CreateAsset(ctx context.Context, signer algo.Signer, p algo.AssetCreate) (algo.Submission, error)
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (ipfs.Locator, error)
}

type CollectionResolver interface {
	ResolveCreator(ctx context.Context, locator string) (collections.Descriptor, error)
}

type Request struct {
	ImageURL          string
	CollectionLocator string
	Name              string // overrides the collection name
	Description       string
	Properties        map[string]any
	UnitName          string
	ImageMimetype     string
}

type Result struct {
	AssetID  uint64
	TxID     string
	Manager  string
	Locator  ipfs.Locator
	Metadata Metadata
}

type Workflow struct {
	chain    Chain
	uploader Uploader
	resolver CollectionResolver

	unitName      string
	imageMimetype string
}

type Option func(*Workflow)

func WithUnitName(u string) Option {
	return func(w *Workflow) {
		if u = strings.TrimSpace(u); u != "" {
			w.unitName = u
		}
	}
}

func WithImageMimetype(m string) Option {
	return func(w *Workflow) {
		if m = strings.TrimSpace(m); m != "" {
			w.imageMimetype = m
		}
	}
}

func NewWorkflow(chain Chain, uploader Uploader, resolver CollectionResolver, opts ...Option) *Workflow {
	w := &Workflow{
		chain:         chain,
		uploader:      uploader,
		resolver:      resolver,
		unitName:      constants.DefaultUnitName,
		imageMimetype: constants.DefaultImageMimetype,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Mint pins the metadata for one image and creates the asset that points at
// it. Exactly one asset-create is submitted per successful call.
func (w *Workflow) Mint(ctx context.Context, sess session.Session, req Request) (res Result, err error) {
	defer func() { recordMint(ctx, err) }()

	if err := sess.Require(); err != nil {
		return Result{}, fmt.Errorf("mint: %w", err)
	}

	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		return Result{}, fmt.Errorf("%w: image url is required", apperr.ErrInvalidInput)
	}
	imageCID, err := ipfs.CIDFromURL(imageURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: image url: %w", apperr.ErrInvalidInput, err)
	}

	var (
		collection = strings.TrimSpace(req.CollectionLocator)
		manager    string
		name       = strings.TrimSpace(req.Name)
	)
	if collection != "" {
		d, err := w.resolver.ResolveCreator(ctx, collection)
		if err != nil {
			return Result{}, fmt.Errorf("mint: %w", err)
		}
		manager = d.Creator
		if name == "" {
			name = strings.TrimSpace(d.Name)
		}
	}
	if name == "" {
		name = constants.DefaultAssetName
	}

	assetName := name + " NFT"
	if len(assetName) > constants.MaxAssetNameBytes {
		return Result{}, fmt.Errorf("%w: asset name %q exceeds %d bytes", apperr.ErrInvalidInput, assetName, constants.MaxAssetNameBytes)
	}
	unitName := strings.TrimSpace(req.UnitName)
	if unitName == "" {
		unitName = w.unitName
	}
	if len(unitName) > constants.MaxUnitNameBytes {
		return Result{}, fmt.Errorf("%w: unit name %q exceeds %d bytes", apperr.ErrInvalidInput, unitName, constants.MaxUnitNameBytes)
	}
	mimetype := strings.TrimSpace(req.ImageMimetype)
	if mimetype == "" {
		mimetype = w.imageMimetype
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("This is a %s NFT", name)
	}
	props := req.Properties
	if props == nil {
		props = map[string]any{}
	}

	md := Metadata{
		Name:           name,
		Description:    description,
		Image:          imageURL,
		Decimals:       constants.NFTDecimals,
		UnitName:       unitName,
		ImageIntegrity: constants.IntegrityPrefix + imageCID,
		ImageMimetype:  mimetype,
		Properties:     props,
		Collection:     collection,
	}

	body, err := json.Marshal(md)
	if err != nil {
		return Result{}, fmt.Errorf("%w: metadata properties: %w", apperr.ErrInvalidInput, err)
	}

	loc, err := w.uploader.Upload(ctx, body, constants.MetadataFileName, constants.JSONMimetype)
	if err != nil {
		return Result{}, fmt.Errorf("mint: metadata: %w", err)
	}
	if len(loc.HTTPURL) > constants.MaxAssetURLBytes {
		return Result{}, fmt.Errorf("%w: metadata url %q exceeds %d bytes", apperr.ErrInvalidInput, loc.HTTPURL, constants.MaxAssetURLBytes)
	}

	sub, err := w.chain.CreateAsset(ctx, sess.Signer, algo.AssetCreate{
		AssetName:    assetName,
		UnitName:     unitName,
		URL:          loc.HTTPURL,
		MetadataHash: MetadataHash(loc.HTTPURL),
		Manager:      manager,
	})
	if err != nil {
		return Result{}, fmt.Errorf("mint: %w", err)
	}

	log.Info("asset minted",
		"asset_id", sub.AssetID,
		"tx_id", sub.TxID,
		"creator", sess.Address,
		"manager", manager,
		"metadata", loc.URI,
	)

	return Result{
		AssetID:  sub.AssetID,
		TxID:     sub.TxID,
		Manager:  manager,
		Locator:  loc,
		Metadata: md,
	}, nil
}

// MetadataHash is the 32-byte value recorded on chain. It digests the
// metadata URL string, not the document bytes.
func MetadataHash(metadataURL string) [32]byte {
	return sha512.Sum512_256([]byte(metadataURL))
}
