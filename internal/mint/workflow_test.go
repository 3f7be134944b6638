package mint

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/session"
	"github.com/algomintai/algomint/internal/testutil/chaintest"
	"github.com/algomintai/algomint/internal/testutil/ipfstest"
)

type fixture struct {
	store *ipfstest.Store
	chain *chaintest.Chain
	colls *collections.Service
	flow  *Workflow
	sess  session.Session
	image string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := ipfstest.New(t)
	chain := chaintest.New()
	colls := collections.NewService(store, store.Gateway)

	return &fixture{
		store: store,
		chain: chain,
		colls: colls,
		flow:  NewWorkflow(chain, store, colls, opts...),
		sess:  session.Session{Address: chaintest.Creator, Signer: chaintest.Signer{Addr: chaintest.Creator}},
		image: store.Put([]byte("png-bytes")).HTTPURL,
	}
}

func (f *fixture) metadata(t *testing.T, res Result) map[string]any {
	t.Helper()
	obj, ok := f.store.Object(res.Locator.CID)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal(obj.Data, &out))
	return out
}

func TestMintWithoutCollection(t *testing.T) {
	f := newFixture(t)

	res, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image, Name: "Cat"})
	require.NoError(t, err)

	asset, ok := f.chain.Asset(res.AssetID)
	require.True(t, ok)
	assert.Empty(t, asset.Manager)
	assert.Empty(t, res.Manager)
	assert.Equal(t, "Cat NFT", asset.Name)
	assert.Equal(t, "MP", asset.UnitName)
	assert.Equal(t, res.Locator.HTTPURL, asset.URL)
	assert.Equal(t, chaintest.Creator, asset.Creator)
	assert.Equal(t, uint64(1), asset.Total)
	assert.Equal(t, uint64(0), asset.Decimals)

	md := f.metadata(t, res)
	assert.NotContains(t, md, "collection")
	assert.Equal(t, "Cat", md["name"])
	assert.Equal(t, "This is a Cat NFT", md["description"])
	assert.Equal(t, f.image, md["image"])
	assert.Equal(t, float64(0), md["decimals"])
	assert.Equal(t, "MP", md["unitName"])
	assert.Equal(t, "image/png", md["image_mimetype"])
	assert.Equal(t, map[string]any{}, md["properties"])

	imageCID := f.image[strings.LastIndex(f.image, "/")+1:]
	assert.Equal(t, "sha256-"+imageCID, md["image_integrity"])
}

func TestMintMetadataHashDigestsURL(t *testing.T) {
	f := newFixture(t)

	res, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image})
	require.NoError(t, err)

	asset, ok := f.chain.Asset(res.AssetID)
	require.True(t, ok)
	assert.Equal(t, sha512.Sum512_256([]byte(res.Locator.HTTPURL)), asset.MetadataHash)
	assert.Equal(t, "Untitled NFT", asset.Name)
}

func TestMintWithCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l1, err := f.colls.Publish(ctx, collections.PublishRequest{Name: "Cats", Creator: chaintest.OtherCreator})
	require.NoError(t, err)

	res, err := f.flow.Mint(ctx, f.sess, Request{
		ImageURL:          f.image,
		CollectionLocator: l1.URI,
		Properties:        map[string]any{"eyes": "green", "lives": 9},
	})
	require.NoError(t, err)

	asset, ok := f.chain.Asset(res.AssetID)
	require.True(t, ok)
	assert.Equal(t, chaintest.OtherCreator, asset.Manager)
	assert.Equal(t, "Cats NFT", asset.Name)

	md := f.metadata(t, res)
	assert.Equal(t, l1.URI, md["collection"])
	assert.Equal(t, "Cats", md["name"])
	assert.Equal(t, map[string]any{"eyes": "green", "lives": float64(9)}, md["properties"])
}

func TestMintCollectionWithoutCreator(t *testing.T) {
	f := newFixture(t)
	loc := f.store.PutJSON(t, collections.Document{Collections: []collections.Descriptor{{Name: "Cats", Network: "algorand"}}})
	before := f.store.Len()

	_, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image, CollectionLocator: loc.URI})
	require.ErrorIs(t, err, apperr.ErrCollectionResolution)

	assert.Equal(t, 0, f.chain.Creates())
	assert.Equal(t, before, f.store.Len())
}

func TestMintCollectionWithMalformedCreator(t *testing.T) {
	f := newFixture(t)
	loc := f.store.PutJSON(t, collections.Document{Collections: []collections.Descriptor{{
		Name: "Cats", Network: "algorand", Creator: "not-an-algorand-address",
	}}})
	before := f.store.Len()

	_, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image, CollectionLocator: loc.URI})
	require.ErrorIs(t, err, apperr.ErrCollectionResolution)

	assert.Equal(t, 0, f.chain.Creates())
	assert.Equal(t, before, f.store.Len(), "metadata must not be pinned")
}

func TestMintUnreachableCollection(t *testing.T) {
	f := newFixture(t)

	_, err := f.flow.Mint(context.Background(), f.sess, Request{
		ImageURL:          f.image,
		CollectionLocator: "ipfs://bafkreibnoelefnzgwbcacyt4vh52ymxvzbjq7mmqhtcnwarfq4lzegsiqe",
	})
	require.ErrorIs(t, err, apperr.ErrCollectionResolution)
	assert.Equal(t, 0, f.chain.Creates())
}

func TestMintChainRejection(t *testing.T) {
	f := newFixture(t)
	sess := session.Session{Address: chaintest.Creator, Signer: chaintest.Signer{Addr: chaintest.Creator, Decline: true}}

	_, err := f.flow.Mint(context.Background(), sess, Request{ImageURL: f.image})
	require.ErrorIs(t, err, apperr.ErrChainSubmission)
	require.ErrorIs(t, err, chaintest.ErrDeclined)
	assert.Equal(t, 0, f.chain.Creates())
}

func TestMintUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailUploads("metadata.json", errors.New("quota exceeded"))

	_, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image})
	require.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, 0, f.chain.Creates())
}

func TestMintRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		sess session.Session
		req  Request
		want error
	}{
		{"no session", session.Session{}, Request{ImageURL: f.image}, apperr.ErrNoSession},
		{"no image", f.sess, Request{}, apperr.ErrInvalidInput},
		{"image without cid", f.sess, Request{ImageURL: "https://example.com/cat.png"}, apperr.ErrInvalidInput},
		{"long name", f.sess, Request{ImageURL: f.image, Name: strings.Repeat("x", 29)}, apperr.ErrInvalidInput},
		{"long unit", f.sess, Request{ImageURL: f.image, UnitName: "TOOLONGUNIT"}, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.flow.Mint(ctx, tt.sess, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.chain.Creates())
}

func TestMintOptions(t *testing.T) {
	f := newFixture(t, WithUnitName("CAT"), WithImageMimetype("image/webp"))

	res, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image})
	require.NoError(t, err)
	assert.Equal(t, "CAT", res.Metadata.UnitName)
	assert.Equal(t, "image/webp", res.Metadata.ImageMimetype)
}

func TestConcurrentMintsAreIndependent(t *testing.T) {
	f := newFixture(t)

	const n = 8
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.flow.Mint(context.Background(), f.sess, Request{ImageURL: f.image})
			assert.NoError(t, err)
			ids[i] = res.AssetID
		}()
	}
	wg.Wait()

	seen := map[uint64]struct{}{}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, f.chain.Creates())
}
