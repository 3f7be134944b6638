package collections

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/constants"
	"github.com/algomintai/algomint/internal/ipfs"
)

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (ipfs.Locator, error)
}

type Fetcher interface {
	FetchJSON(ctx context.Context, uri string, out any) error
}

type Service struct {
	uploader Uploader
	fetcher  Fetcher
	policy   ImagePolicy
}

type Option func(*Service)

func WithImagePolicy(p ImagePolicy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(uploader Uploader, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{uploader: uploader, fetcher: fetcher, policy: DegradeOnImageError}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish uploads the optional images, then the descriptor document, and
// returns the document's locator.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (ipfs.Locator, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: collection name is required", apperr.ErrInvalidInput)
	}
	creator := strings.TrimSpace(req.Creator)
	if creator == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: publish collection", apperr.ErrNoSession)
	}
	if _, err := types.DecodeAddress(creator); err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: creator %q: %w", apperr.ErrInvalidInput, creator, err)
	}
	if req.RoyaltyPercentage < 0 || req.RoyaltyPercentage > 100 {
		return ipfs.Locator{}, fmt.Errorf("%w: royalty percentage %v out of range", apperr.ErrInvalidInput, req.RoyaltyPercentage)
	}

	banner, err := s.uploadImage(ctx, "banner", req.Banner)
	if err != nil {
		return ipfs.Locator{}, err
	}
	avatar, err := s.uploadImage(ctx, "avatar", req.Avatar)
	if err != nil {
		return ipfs.Locator{}, err
	}

	doc := Document{Collections: []Descriptor{{
		Name:              name,
		Network:           constants.CollectionNetwork,
		BannerImage:       banner,
		AvatarImage:       avatar,
		Explicit:          req.Explicit,
		RoyaltyPercentage: req.RoyaltyPercentage,
		Creator:           creator,
	}}}

	body, err := json.Marshal(doc)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("collections: marshal descriptor: %w", err)
	}

	loc, err := s.uploader.Upload(ctx, body, constants.CollectionFileName, constants.JSONMimetype)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("collections: publish %q: %w", name, err)
	}

	log.Info("collection published", "name", name, "creator", creator, "locator", loc.URI)
	return loc, nil
}

func (s *Service) uploadImage(ctx context.Context, field string, f *File) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", nil
	}

	filename := f.Name
	if filename == "" {
		filename = field
	}
	mimeType := f.Mimetype
	if mimeType == "" {
		mimeType = constants.DefaultImageMimetype
	}

	loc, err := s.uploader.Upload(ctx, f.Data, filename, mimeType)
	if err != nil {
		if s.policy == FailOnImageError {
			return "", fmt.Errorf("collections: %s image: %w", field, err)
		}
		log.Warn("collection image upload failed; publishing without it", "field", field, "error", err)
		return "", nil
	}
	return loc.URI, nil
}

// Resolve dereferences a descriptor locator and returns its first entry.
func (s *Service) Resolve(ctx context.Context, locator string) (Descriptor, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Descriptor{}, fmt.Errorf("%w: empty locator", apperr.ErrCollectionResolution)
	}

	var doc Document
	if err := s.fetcher.FetchJSON(ctx, locator, &doc); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s: %w", apperr.ErrCollectionResolution, locator, err)
	}
	if len(doc.Collections) == 0 {
		return Descriptor{}, fmt.Errorf("%w: %s: document has no collections", apperr.ErrCollectionResolution, locator)
	}
	return doc.Collections[0], nil
}

// ResolveCreator is Resolve for callers that cannot proceed without a valid
// creator address.
func (s *Service) ResolveCreator(ctx context.Context, locator string) (Descriptor, error) {
	d, err := s.Resolve(ctx, locator)
	if err != nil {
		return Descriptor{}, err
	}
	d.Creator = strings.TrimSpace(d.Creator)
	if d.Creator == "" {
		return Descriptor{}, fmt.Errorf("%w: %s: descriptor has no creator", apperr.ErrCollectionResolution, locator)
	}
	if _, err := types.DecodeAddress(d.Creator); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s: creator %q: %w", apperr.ErrCollectionResolution, locator, d.Creator, err)
	}
	return d, nil
}
