package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"

	appconfig "github.com/algomintai/algomint/cmd/algomint/config"
	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/assets"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/helpers"
	apihttp "github.com/algomintai/algomint/internal/http"
	"github.com/algomintai/algomint/internal/imagegen"
	"github.com/algomintai/algomint/internal/ipfs"
	"github.com/algomintai/algomint/internal/mint"
	"github.com/algomintai/algomint/internal/networks"
	"github.com/algomintai/algomint/internal/pinning"
	"github.com/algomintai/algomint/internal/session"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	log.Info("algomint",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	network, err := networks.Lookup(cfg.Algorand.Network)
	if err != nil {
		log.Fatal("unknown network", "error", err)
	}

	chain, err := algo.NewFromConfig(ctx, &cfg.Algorand)
	if err != nil {
		log.Fatal("failed to init algorand client", "error", err)
	}

	// No client-wide timeout; each outbound call is bound to its request context.
	httpClient := &http.Client{}
	gateway := ipfs.NewGateway(cfg.Pinata.Gateway, httpClient)

	pinClient, err := pinning.NewClient(cfg.Pinata.Config, httpClient)
	if err != nil {
		log.Fatal("failed to init pinning client", "error", err)
	}
	uploader := pinning.NewUploader(pinClient, gateway, httpClient)

	sessions, err := buildSessions(cfg)
	if err != nil {
		log.Fatal("failed to init signer", "error", err)
	}
	if sessions.Default() == "" {
		log.Warn("no signer configured; minting and destroying are disabled")
	}

	colls := collections.NewService(uploader, gateway, collections.WithImagePolicy(cfg.ImagePolicy()))

	var mintOpts []mint.Option
	if cfg.Mint.UnitName != "" {
		mintOpts = append(mintOpts, mint.WithUnitName(cfg.Mint.UnitName))
	}
	if cfg.Mint.ImageMimetype != "" {
		mintOpts = append(mintOpts, mint.WithImageMimetype(cfg.Mint.ImageMimetype))
	}

	var invOpts []assets.ManagerOption
	if cfg.Collections.FetchLimit > 0 {
		invOpts = append(invOpts, assets.WithCollectionFetchLimit(cfg.Collections.FetchLimit))
	}

	images := imagegen.New(cfg.OpenAI, uploader, httpClient)
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set; image generation requests will fail")
	}

	api, err := apihttp.NewServer(apihttp.Deps{
		Uploads:     pinClient,
		Images:      images,
		Collections: colls,
		Minter:      mint.NewWorkflow(chain, uploader, colls, mintOpts...),
		Inventory:   assets.NewManager(chain, gateway, colls, invOpts...),
		Sessions:    sessions,
	},
		apihttp.WithNetwork(network),
		apihttp.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		apihttp.WithGenerateRateLimit(cfg.Server.GenerateRateTokens, cfg.Server.GenerateRateInterval),
		apihttp.WithConfirmationTTL(cfg.Server.ConfirmationTTL),
	)
	if err != nil {
		log.Fatal("failed to init http server", "error", err)
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", addr, "network", network.Name, "signer", sessions.Default())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("HTTP server gracefully stopped")
	}
	if err = api.Close(shutdownCtx); err != nil {
		log.Error("rate limiter close failed", "error", err)
	}
}

// buildSessions registers the configured signers. KMD comes first so it is
// the default when both are set.
func buildSessions(cfg *appconfig.Config) (*session.Registry, error) {
	reg := session.NewRegistry()

	if cfg.KMD.Enabled() {
		s, err := session.NewKMDSigner(cfg.KMD)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}

	words := cfg.Signer.Mnemonic
	if words == "" && reg.Default() == "" && cfg.Signer.Prompt && helpers.StdinIsTerminal() {
		var err error
		if words, err = helpers.PromptMnemonic(); err != nil {
			return nil, err
		}
	}
	if words != "" {
		s, err := session.NewAccountSignerFromMnemonic(words)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
