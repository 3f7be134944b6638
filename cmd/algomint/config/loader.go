package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/constants"
	"github.com/algomintai/algomint/internal/imagegen"
	"github.com/algomintai/algomint/internal/networks"
	"github.com/algomintai/algomint/internal/pinning"
	"github.com/algomintai/algomint/internal/session"
)

type ServerSettings struct {
	Host                 string        `mapstructure:"host"`
	Port                 string        `mapstructure:"port"`
	AllowedOrigins       []string      `mapstructure:"allowed_origins"`
	GenerateRateTokens   uint64        `mapstructure:"generate_rate_tokens"`
	GenerateRateInterval time.Duration `mapstructure:"generate_rate_interval"`
	ConfirmationTTL      time.Duration `mapstructure:"confirmation_ttl"`
}

type PinataSettings struct {
	pinning.Config `mapstructure:",squash"`
	Gateway        string `mapstructure:"gateway"`
}

type SignerSettings struct {
	Mnemonic string `mapstructure:"mnemonic"`
	// Prompt asks for a mnemonic on a terminal when no signer is configured.
	Prompt bool `mapstructure:"prompt"`
}

type CollectionSettings struct {
	ImagePolicy string `mapstructure:"image_policy"`
	FetchLimit  int    `mapstructure:"fetch_limit"`
}

type MintSettings struct {
	UnitName      string `mapstructure:"unit_name"`
	ImageMimetype string `mapstructure:"image_mimetype"`
}

type Config struct {
	Server      ServerSettings     `mapstructure:"Server"`
	Algorand    algo.Config        `mapstructure:"Algorand"`
	KMD         session.KMDConfig  `mapstructure:"KMD"`
	Pinata      PinataSettings     `mapstructure:"Pinata"`
	OpenAI      imagegen.Config    `mapstructure:"OpenAI"`
	Signer      SignerSettings     `mapstructure:"Signer"`
	Collections CollectionSettings `mapstructure:"Collections"`
	Mint        MintSettings       `mapstructure:"Mint"`
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(home, ".config", constants.AppName),
		filepath.Join(home, "config"),
		".",
	}

	cfg, err := parse(EmbeddedConfigYAML, paths)
	if err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", apperr.ErrConfiguration, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse reads the embedded defaults and merges the first config.yaml found
// on paths over them. A missing file is not an error.
func parse(embedded []byte, paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(embedded)); err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}

	v.SetConfigName("config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides file settings with non-empty environment values.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&c.Algorand.Algod.Server, "ALGOD_SERVER")
	set(&c.Algorand.Algod.Port, "ALGOD_PORT")
	set(&c.Algorand.Algod.Token, "ALGOD_TOKEN")
	set(&c.Algorand.Network, "ALGOD_NETWORK")
	set(&c.Algorand.Indexer.Server, "INDEXER_SERVER")
	set(&c.Algorand.Indexer.Port, "INDEXER_PORT")
	set(&c.Algorand.Indexer.Token, "INDEXER_TOKEN")

	set(&c.KMD.Node.Server, "KMD_SERVER")
	set(&c.KMD.Node.Port, "KMD_PORT")
	set(&c.KMD.Node.Token, "KMD_TOKEN")
	set(&c.KMD.Wallet, "KMD_WALLET")
	set(&c.KMD.Password, "KMD_PASSWORD")

	set(&c.Pinata.JWT, "PINATA_JWT")
	set(&c.Pinata.Gateway, "PINATA_GATEWAY")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Signer.Mnemonic, "SIGNER_MNEMONIC")
	set(&c.Server.Port, "ALGOMINT_PORT")
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Algorand.Algod.Server) == "" {
		missing = append(missing, "ALGOD_SERVER")
	}
	if strings.TrimSpace(c.Algorand.Indexer.Server) == "" {
		missing = append(missing, "INDEXER_SERVER")
	}
	if strings.TrimSpace(c.Algorand.Network) == "" {
		missing = append(missing, "ALGOD_NETWORK")
	}
	if strings.TrimSpace(c.Pinata.JWT) == "" {
		missing = append(missing, "PINATA_JWT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s", apperr.ErrConfiguration, strings.Join(missing, ", "))
	}

	if _, err := networks.Lookup(c.Algorand.Network); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}
	if strings.TrimSpace(c.Pinata.Gateway) == "" {
		return fmt.Errorf("%w: pinata gateway is empty", apperr.ErrConfiguration)
	}
	if _, ok := collections.ParseImagePolicy(c.Collections.ImagePolicy); !ok {
		return fmt.Errorf("%w: unknown collections image_policy %q", apperr.ErrConfiguration, c.Collections.ImagePolicy)
	}
	return nil
}

// ImagePolicy is the parsed collections policy; Validate has already checked it.
func (c *Config) ImagePolicy() collections.ImagePolicy {
	p, _ := collections.ParseImagePolicy(c.Collections.ImagePolicy)
	return p
}
