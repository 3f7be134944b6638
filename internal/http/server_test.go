package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/assets"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/confirm"
	"github.com/algomintai/algomint/internal/imagegen"
	"github.com/algomintai/algomint/internal/ipfs"
	"github.com/algomintai/algomint/internal/mint"
	"github.com/algomintai/algomint/internal/networks"
	"github.com/algomintai/algomint/internal/session"
	"github.com/algomintai/algomint/internal/testutil/chaintest"
	"github.com/algomintai/algomint/internal/testutil/ipfstest"
)

type fakeUploads struct {
	url string
	err error
}

func (f fakeUploads) SignUploadURL(context.Context) (string, error) { return f.url, f.err }

type fakeImages struct {
	loc    ipfs.Locator
	calls  int
	prompt string
}

func (f *fakeImages) Generate(_ context.Context, prompt, _ string) (ipfs.Locator, error) {
	f.calls++
	f.prompt = prompt
	if prompt == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: prompt is required", apperr.ErrInvalidInput)
	}
	return f.loc, nil
}

func (f *fakeImages) Pin(context.Context, []byte, string, string) (ipfs.Locator, error) {
	return f.loc, nil
}

type env struct {
	store  *ipfstest.Store
	chain  *chaintest.Chain
	server *Server
}

func newEnv(t *testing.T, images ImageGenerator, opts ...Option) *env {
	t.Helper()

	store := ipfstest.New(t)
	chain := chaintest.New()
	colls := collections.NewService(store, store.Gateway)

	reg := session.NewRegistry()
	require.NoError(t, reg.Add(chaintest.Signer{Addr: chaintest.Creator}))

	if images == nil {
		images = imagegen.New(imagegen.Config{}, store, nil)
	}

	net, err := networks.Lookup("testnet")
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Uploads:     fakeUploads{url: "https://uploads.example/signed?x=1"},
		Images:      images,
		Collections: colls,
		Minter:      mint.NewWorkflow(chain, store, colls),
		Inventory:   assets.NewManager(chain, store.Gateway, colls),
		Sessions:    reg,
	}, append([]Option{WithNetwork(net)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })

	return &env{store: store, chain: chain, server: srv}
}

func (e *env) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// collection stores a descriptor document created by chaintest.Creator.
func (e *env) collection(t *testing.T, name string) string {
	t.Helper()
	return e.store.PutJSON(t, collections.Document{Collections: []collections.Descriptor{{
		Name: name, Network: "algorand", Creator: chaintest.Creator,
	}}}).URI
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, data := range files {
		fw, err := mw.CreateFormFile(k, k+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil)
	rec, body := e.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "testnet", body["network"])
	assert.Equal(t, chaintest.Creator, body["signer"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestUploadURL(t *testing.T) {
	e := newEnv(t, nil)
	rec, body := e.do(t, httptest.NewRequest(http.MethodGet, "/api/url", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://uploads.example/signed?x=1", body["url"])

	e.server.deps.Uploads = fakeUploads{err: fmt.Errorf("%w: status 401", apperr.ErrUpload)}
	rec, body = e.do(t, httptest.NewRequest(http.MethodGet, "/api/url", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apperr.ErrUpload.Error(), body["kind"])
}

func TestGenerateImageWithoutAPIKey(t *testing.T) {
	e := newEnv(t, nil)
	rec, body := e.do(t, jsonRequest(t, http.MethodPost, "/api/generate-image",
		map[string]any{"prompt": "a cat", "collectionName": "Cats"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperr.ErrConfiguration.Error(), body["kind"])
}

func TestGenerateImagePinsUploadedFile(t *testing.T) {
	e := newEnv(t, nil)
	rec, body := e.do(t, multipartRequest(t, "/api/generate-image", nil, map[string][]byte{"file": []byte("pixels")}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hash, _ := body["ipfsHash"].(string)
	require.NotEmpty(t, hash)
	obj, ok := e.store.Object(hash)
	require.True(t, ok)
	assert.Equal(t, []byte("pixels"), obj.Data)
	assert.Equal(t, e.store.Gateway.ToHTTP("ipfs://"+hash), body["gatewayUrl"])
}

func TestGenerateImageMissingFile(t *testing.T) {
	e := newEnv(t, nil)
	rec, _ := e.do(t, multipartRequest(t, "/api/generate-image", map[string]string{"note": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateImageRateLimit(t *testing.T) {
	images := &fakeImages{loc: ipfs.Locator{HTTPURL: "https://gw.example/ipfs/x"}}
	e := newEnv(t, images, WithGenerateRateLimit(2, time.Hour))

	for i := 0; i < 2; i++ {
		rec, body := e.do(t, jsonRequest(t, http.MethodPost, "/api/generate-image", map[string]any{"prompt": "p"}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://gw.example/ipfs/x", body["imageUrl"])
	}

	rec, _ := e.do(t, jsonRequest(t, http.MethodPost, "/api/generate-image", map[string]any{"prompt": "p"}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, images.calls)

	// Other clients keep their own budget.
	req := jsonRequest(t, http.MethodPost, "/api/generate-image", map[string]any{"prompt": "p"})
	req.RemoteAddr = "198.51.100.7:4000"
	rec, _ = e.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateImageRejectsUnknownFields(t *testing.T) {
	e := newEnv(t, &fakeImages{})
	rec, _ := e.do(t, jsonRequest(t, http.MethodPost, "/api/generate-image", map[string]any{"prompt": "p", "n": 3}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateImageSendsPromptOnly(t *testing.T) {
	images := &fakeImages{loc: ipfs.Locator{HTTPURL: "https://gw.example/ipfs/x"}}
	e := newEnv(t, images)

	rec, _ := e.do(t, jsonRequest(t, http.MethodPost, "/api/generate-image", map[string]any{
		"prompt": " a cat in a hat ", "description": "for the cats collection", "collectionName": "Cats",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "a cat in a hat", images.prompt)
}

func TestPublishMintListDestroy(t *testing.T) {
	e := newEnv(t, nil)

	req := multipartRequest(t, "/api/collections",
		map[string]string{"name": "Cats", "royaltyPercentage": "5", "explicit": "true"},
		map[string][]byte{"banner": []byte("banner")})
	req.Header.Set(walletAddressHeader, chaintest.Creator)
	rec, body := e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	locator, _ := body["locator"].(string)
	require.True(t, strings.HasPrefix(locator, "ipfs://"))

	image := e.store.Put([]byte("a cat")).HTTPURL
	req = jsonRequest(t, http.MethodPost, "/api/mint", map[string]any{
		"imageUrl":    image,
		"collection":  locator,
		"description": "first cat",
	})
	rec, body = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assetID := uint64(body["assetId"].(float64))
	require.NotZero(t, assetID)
	assert.Equal(t, fmt.Sprintf("https://testnet.explorer.perawallet.app/asset/%d", assetID), body["explorerUrl"])
	assert.NotEmpty(t, body["txId"])

	rec, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var inv assets.Inventory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, chaintest.Creator, inv.Address)
	g, ok := inv.Group(locator)
	require.True(t, ok)
	require.NotNil(t, g.Collection)
	assert.Equal(t, "Cats", g.Collection.Name)
	require.Len(t, g.Assets, 1)
	assert.True(t, g.Assets[0].Destroyable)
	assert.Equal(t, assets.StateListed, g.Assets[0].State)

	path := fmt.Sprintf("/api/assets/%d/destroy", assetID)
	rec, body = e.do(t, jsonRequest(t, http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code, _ := body["code"].(string)
	require.Len(t, code, confirm.CodeLength)

	rec, _ = e.do(t, jsonRequest(t, http.MethodPost, path+"/confirm", map[string]any{"code": "WRONG000"}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, e.chain.Deletes())

	rec, body = e.do(t, jsonRequest(t, http.MethodPost, path+"/confirm", map[string]any{"code": code}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["txId"])
	assert.Equal(t, 1, e.chain.Deletes())

	rec, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	inv = assets.Inventory{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, 0, inv.Len())
}

func TestCancelDestroy(t *testing.T) {
	e := newEnv(t, nil)
	image := e.store.Put([]byte("dog")).HTTPURL
	rec, body := e.do(t, jsonRequest(t, http.MethodPost, "/api/mint",
		map[string]any{"imageUrl": image, "name": "Dog", "collection": e.collection(t, "Dogs")}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assetID := uint64(body["assetId"].(float64))

	path := fmt.Sprintf("/api/assets/%d/destroy", assetID)
	rec, _ = e.do(t, jsonRequest(t, http.MethodPost, path+"/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, jsonRequest(t, http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = e.do(t, jsonRequest(t, http.MethodPost, path+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	rec, _ = e.do(t, jsonRequest(t, http.MethodPost, path+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, ok := e.chain.Asset(assetID)
	assert.True(t, ok)
}

func TestDestroyRejectedByChain(t *testing.T) {
	e := newEnv(t, nil)
	image := e.store.Put([]byte("bird")).HTTPURL
	rec, body := e.do(t, jsonRequest(t, http.MethodPost, "/api/mint",
		map[string]any{"imageUrl": image, "name": "Bird", "collection": e.collection(t, "Birds")}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assetID := uint64(body["assetId"].(float64))
	e.chain.Transfer(assetID, 1)

	path := fmt.Sprintf("/api/assets/%d/destroy", assetID)
	rec, body = e.do(t, jsonRequest(t, http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	code := body["code"].(string)

	rec, body = e.do(t, jsonRequest(t, http.MethodPost, path+"/confirm", map[string]any{"code": code}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "holding only 0/1")

	rec, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	var inv assets.Inventory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Equal(t, 1, inv.Len())
	a := inv.Groups[0].Assets[0]
	assert.Equal(t, assets.StateListed, a.State)
	assert.Contains(t, a.LastError, "holding only")
}

func TestMintRequiresSession(t *testing.T) {
	e := newEnv(t, nil)
	req := jsonRequest(t, http.MethodPost, "/api/mint", map[string]any{"imageUrl": e.store.Put([]byte("x")).HTTPURL})
	req.Header.Set(walletAddressHeader, chaintest.Stranger)

	rec, body := e.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.ErrNoSession.Error(), body["kind"])
	assert.Equal(t, 0, e.chain.Creates())
}

func TestPublishRequiresSession(t *testing.T) {
	e := newEnv(t, nil)

	// A creator field alone cannot stand in for a signer the service holds.
	req := multipartRequest(t, "/api/collections",
		map[string]string{"name": "Cats", "creator": chaintest.Stranger},
		map[string][]byte{"banner": []byte("banner")})
	req.Header.Set(walletAddressHeader, chaintest.Stranger)

	rec, body := e.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.ErrNoSession.Error(), body["kind"])
	assert.Equal(t, 0, e.store.Len())
}

func TestPublishRejectsForeignCreator(t *testing.T) {
	e := newEnv(t, nil)

	req := multipartRequest(t, "/api/collections",
		map[string]string{"name": "Cats", "creator": chaintest.OtherCreator}, nil)
	req.Header.Set(walletAddressHeader, chaintest.Creator)

	rec, body := e.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.ErrInvalidInput.Error(), body["kind"])
	assert.Equal(t, 0, e.store.Len())

	req = multipartRequest(t, "/api/collections",
		map[string]string{"name": "Cats", "creator": chaintest.Creator}, nil)
	rec, _ = e.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, e.store.Len())
}

func TestListAssetsForForeignAddress(t *testing.T) {
	e := newEnv(t, nil)
	md := e.store.PutJSON(t, map[string]any{"name": "Other", "image": "ipfs://" + e.store.Put([]byte("o")).CID})
	e.chain.Seed(algoAsset(chaintest.OtherCreator, md.URI))

	rec, _ := e.do(t, httptest.NewRequest(http.MethodGet, "/api/assets?address="+chaintest.OtherCreator, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var inv assets.Inventory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Equal(t, 1, inv.Len())
	assert.False(t, inv.Groups[0].Assets[0].Destroyable)

	e.chain.IndexErr = errors.New("indexer down")
	rec, _ = e.do(t, httptest.NewRequest(http.MethodGet, "/api/assets?address="+chaintest.OtherCreator, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func algoAsset(creator, url string) algo.IndexedAsset {
	return algo.IndexedAsset{Name: "Other", UnitName: "MP", URL: url, Creator: creator, Total: 1}
}

func TestInvalidAssetID(t *testing.T) {
	e := newEnv(t, nil)
	rec, _ := e.do(t, jsonRequest(t, http.MethodPost, "/api/assets/0/destroy", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, jsonRequest(t, http.MethodPost, "/api/assets/abc/destroy", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	e := newEnv(t, nil, WithAllowedOrigins([]string{"http://localhost:3000/"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/mint", nil)
	req.Header.Set("Origin", "http://LOCALHOST:3000")
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-wallet-address")
	rec, _ := e.do(t, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type,x-wallet-address", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name", apperr.ErrInvalidInput), http.StatusBadRequest},
		{apperr.ErrNoSession, http.StatusUnauthorized},
		{apperr.ErrNotFound, http.StatusNotFound},
		{confirm.ErrMismatch, http.StatusConflict},
		{confirm.ErrUsed, http.StatusConflict},
		{confirm.ErrExpired, http.StatusGone},
		{fmt.Errorf("mint: %w", apperr.ErrChainSubmission), http.StatusBadGateway},
		{apperr.ErrCollectionResolution, http.StatusBadGateway},
		{apperr.ErrIndex, http.StatusBadGateway},
		{apperr.ErrConfiguration, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{})
	require.ErrorIs(t, err, apperr.ErrConfiguration)
}
