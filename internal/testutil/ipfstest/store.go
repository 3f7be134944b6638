// Package ipfstest provides an in-memory content-addressed store with an HTTP
// gateway, for tests that exercise upload and fetch paths end to end.
package ipfstest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/ipfs"
)

// Object is a stored payload with the metadata it was uploaded with.
type Object struct {
	Data     []byte
	Filename string
	Mimetype string
}

type Store struct {
	mu       sync.Mutex
	objects  map[string]Object
	fetches  map[string]int
	failures map[string]error

	Server  *httptest.Server
	Gateway *ipfs.Gateway
}

// New starts a gateway serving GET /ipfs/<cid>. It is closed with the test.
func New(t testing.TB) *Store {
	t.Helper()

	s := &Store{
		objects:  map[string]Object{},
		fetches:  map[string]int{},
		failures: map[string]error{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	s.Gateway = ipfs.NewGateway(s.Server.URL, s.Server.Client())
	return s
}

func (s *Store) serve(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutPrefix(r.URL.Path, "/ipfs/")
	if !ok || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.fetches[id]++
	obj, found := s.objects[id]
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}
	if obj.Mimetype != "" {
		w.Header().Set("Content-Type", obj.Mimetype)
	}
	_, _ = w.Write(obj.Data)
}

// Upload stores data under its CIDv1 (raw codec, sha2-256).
func (s *Store) Upload(_ context.Context, data []byte, filename, mimeType string) (ipfs.Locator, error) {
	s.mu.Lock()
	failure := s.failures[filename]
	s.mu.Unlock()
	if failure != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: %s: %w", apperr.ErrUpload, filename, failure)
	}
	return s.put(data, filename, mimeType), nil
}

func (s *Store) put(data []byte, filename, mimeType string) ipfs.Locator {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		panic(err)
	}
	id := cid.NewCidV1(cid.Raw, mh).String()

	s.mu.Lock()
	s.objects[id] = Object{Data: append([]byte(nil), data...), Filename: filename, Mimetype: mimeType}
	s.mu.Unlock()

	loc, err := s.Gateway.Locate(id)
	if err != nil {
		panic(err)
	}
	return loc
}

// Put stores raw bytes.
func (s *Store) Put(data []byte) ipfs.Locator {
	return s.put(data, "", "")
}

// PutJSON marshals v and stores it.
func (s *Store) PutJSON(t testing.TB, v any) ipfs.Locator {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return s.put(b, "", "application/json")
}

// FailUploads makes every upload of filename fail with err.
func (s *Store) FailUploads(filename string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[filename] = err
}

// Object returns what is stored under id.
func (s *Store) Object(id string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	return obj, ok
}

// Fetches returns how many gateway GETs hit id.
func (s *Store) Fetches(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
