package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/assets"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/ipfs"
	"github.com/algomintai/algomint/internal/mint"
	"github.com/algomintai/algomint/internal/networks"
	"github.com/algomintai/algomint/internal/session"
)

type UploadSigner interface {
	SignUploadURL(ctx context.Context) (string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt, collectionName string) (ipfs.Locator, error)
	Pin(ctx context.Context, data []byte, filename, contentType string) (ipfs.Locator, error)
}

type Publisher interface {
	Publish(ctx context.Context, req collections.PublishRequest) (ipfs.Locator, error)
}

type Minter interface {
	Mint(ctx context.Context, sess session.Session, req mint.Request) (mint.Result, error)
}

type Inventory interface {
	ListOwned(ctx context.Context, address string) (assets.Inventory, error)
	Destroy(ctx context.Context, sess session.Session, assetID uint64) (string, error)
}

type Sessions interface {
	Resolve(address string) (session.Session, error)
	Default() string
}

// Deps are the services the API fronts. All are required.
type Deps struct {
	Uploads     UploadSigner
	Images      ImageGenerator
	Collections Publisher
	Minter      Minter
	Inventory   Inventory
	Sessions    Sessions
}

type Server struct {
	deps    Deps
	router  *mux.Router
	network networks.Network

	allowedOrigins map[string]struct{}
	limiter        limiter.Store
	rateTokens     uint64
	rateInterval   time.Duration
	confirmTTL     time.Duration

	viewsMu sync.Mutex
	views   map[string]*assets.View
}

type Option func(*Server)

// WithAllowedOrigins restricts browser origins. Without it any origin may call.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		s.allowedOrigins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			if n := normalizeOrigin(o); n != "" {
				s.allowedOrigins[n] = struct{}{}
			}
		}
	}
}

func WithNetwork(n networks.Network) Option {
	return func(s *Server) { s.network = n }
}

// WithGenerateRateLimit sets the per-client budget for image generation.
// Zero tokens disables the limit.
func WithGenerateRateLimit(tokens uint64, interval time.Duration) Option {
	return func(s *Server) {
		s.rateTokens = tokens
		s.rateInterval = interval
	}
}

func WithConfirmationTTL(d time.Duration) Option {
	return func(s *Server) { s.confirmTTL = d }
}

func NewServer(deps Deps, opts ...Option) (*Server, error) {
	if deps.Uploads == nil || deps.Images == nil || deps.Collections == nil ||
		deps.Minter == nil || deps.Inventory == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("%w: http: missing service dependency", apperr.ErrConfiguration)
	}

	s := &Server{
		deps:         deps,
		router:       mux.NewRouter(),
		rateTokens:   DefaultGenerateRateTokens,
		rateInterval: DefaultGenerateRateInterval,
		views:        make(map[string]*assets.View),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rateTokens > 0 {
		store, err := memorystore.New(&memorystore.Config{
			Tokens:   s.rateTokens,
			Interval: s.rateInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("http: rate limiter: %w", err)
		}
		s.limiter = store
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestLoggerMiddleware)

	r.HandleFunc("/healthz", s.withAPIGuards("GET,OPTIONS", s.handleHealth)).Methods(http.MethodGet, http.MethodOptions)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/url", s.withAPIGuards("GET,OPTIONS", s.handleUploadURL)).
		Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/generate-image", s.withAPIGuards("POST,OPTIONS", s.withRateLimit(s.handleGenerateImage))).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/collections", s.withAPIGuards("POST,OPTIONS", s.handlePublishCollection)).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/mint", s.withAPIGuards("POST,OPTIONS", s.handleMint)).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/assets", s.withAPIGuards("GET,OPTIONS", s.handleListAssets)).
		Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/assets/{id:[0-9]+}/destroy", s.withAPIGuards("POST,OPTIONS", s.handleRequestDestroy)).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/assets/{id:[0-9]+}/destroy/confirm", s.withAPIGuards("POST,OPTIONS", s.handleConfirmDestroy)).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/assets/{id:[0-9]+}/destroy/cancel", s.withAPIGuards("POST,OPTIONS", s.handleCancelDestroy)).
		Methods(http.MethodPost, http.MethodOptions)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the rate limiter.
func (s *Server) Close(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Close(ctx)
}

// session resolves the caller's signing session from the wallet header,
// falling back to the default signer.
func (s *Server) session(r *http.Request) (session.Session, error) {
	return s.deps.Sessions.Resolve(strings.TrimSpace(r.Header.Get(walletAddressHeader)))
}

// activeAddress is the address a read should target: the explicit query
// parameter, then the wallet header, then the default signer.
func (s *Server) activeAddress(r *http.Request) string {
	if a := strings.TrimSpace(r.URL.Query().Get(QueryParamAddress)); a != "" {
		return a
	}
	if a := strings.TrimSpace(r.Header.Get(walletAddressHeader)); a != "" {
		return a
	}
	return s.deps.Sessions.Default()
}

// view returns the destroy view for address, listing the inventory when
// none has been built yet.
func (s *Server) view(ctx context.Context, address string) (*assets.View, error) {
	s.viewsMu.Lock()
	v, ok := s.views[address]
	s.viewsMu.Unlock()
	if ok {
		return v, nil
	}

	inv, err := s.deps.Inventory.ListOwned(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.storeView(address, inv), nil
}

func (s *Server) storeView(address string, inv assets.Inventory) *assets.View {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()

	if v, ok := s.views[address]; ok {
		v.Refresh(inv)
		return v
	}
	var opts []assets.ViewOption
	if s.confirmTTL > 0 {
		opts = append(opts, assets.WithConfirmationTTL(s.confirmTTL))
	}
	v := assets.NewView(inv, s.deps.Inventory, opts...)
	s.views[address] = v
	return v
}
