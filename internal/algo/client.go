package algo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"

	"github.com/algomintai/algomint/internal/apperr"
)

// NodeConfig is how one Algorand REST endpoint is reached.
type NodeConfig struct {
	Server string `mapstructure:"server"`
	Port   string `mapstructure:"port"`
	Token  string `mapstructure:"token"`
}

// Address joins server and port. A port already present in the server URL wins.
func (n NodeConfig) Address() (string, error) {
	server := strings.TrimRight(strings.TrimSpace(n.Server), "/")
	if server == "" {
		return "", fmt.Errorf("%w: server is empty", apperr.ErrConfiguration)
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid server %q", apperr.ErrConfiguration, n.Server)
	}

	port := strings.TrimSpace(n.Port)
	if port != "" && u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.String(), nil
}

type Config struct {
	Network string     `mapstructure:"network"`
	Algod   NodeConfig `mapstructure:"algod"`
	Indexer NodeConfig `mapstructure:"indexer"`
}

// Client bundles the node and index service handles every chain operation uses.
type Client struct {
	network string
	algod   *algod.Client
	indexer *indexer.Client
}

func NewFromConfig(_ context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: algo: nil config", apperr.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.Network) == "" {
		return nil, fmt.Errorf("%w: algo: network is empty", apperr.ErrConfiguration)
	}

	algodAddr, err := cfg.Algod.Address()
	if err != nil {
		return nil, fmt.Errorf("algo: algod: %w", err)
	}
	indexerAddr, err := cfg.Indexer.Address()
	if err != nil {
		return nil, fmt.Errorf("algo: indexer: %w", err)
	}

	ac, err := algod.MakeClient(algodAddr, cfg.Algod.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: algo: algod client: %w", apperr.ErrConfiguration, err)
	}
	ic, err := indexer.MakeClient(indexerAddr, cfg.Indexer.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: algo: indexer client: %w", apperr.ErrConfiguration, err)
	}

	return &Client{network: strings.ToLower(strings.TrimSpace(cfg.Network)), algod: ac, indexer: ic}, nil
}

func (c *Client) Network() string { return c.network }
