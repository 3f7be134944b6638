package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/kmd"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/algo"
	"github.com/algomintai/algomint/internal/apperr"
)

type KMDConfig struct {
	Node     algo.NodeConfig `mapstructure:",squash"`
	Wallet   string          `mapstructure:"wallet"`
	Password string          `mapstructure:"password"`
	Address  string          `mapstructure:"address"`
}

func (c KMDConfig) Enabled() bool {
	return strings.TrimSpace(c.Node.Server) != ""
}

// KMDSigner signs through a key management daemon wallet. A wallet handle is
// opened per signature and released right after.
type KMDSigner struct {
	client   kmd.Client
	walletID string
	password string
	address  string
}

func NewKMDSigner(cfg KMDConfig) (*KMDSigner, error) {
	addr, err := cfg.Node.Address()
	if err != nil {
		return nil, fmt.Errorf("session: kmd: %w", err)
	}
	client, err := kmd.MakeClient(addr, cfg.Node.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: session: kmd client: %w", apperr.ErrConfiguration, err)
	}

	wallets, err := client.ListWallets()
	if err != nil {
		return nil, fmt.Errorf("%w: session: kmd list wallets: %w", apperr.ErrConfiguration, err)
	}

	walletName := strings.TrimSpace(cfg.Wallet)
	var walletID string
	for _, w := range wallets.Wallets {
		if w.Name == walletName {
			walletID = w.ID
			break
		}
	}
	if walletID == "" {
		return nil, fmt.Errorf("%w: session: kmd wallet %q not found", apperr.ErrConfiguration, walletName)
	}

	s := &KMDSigner{client: client, walletID: walletID, password: cfg.Password}

	handle, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}
	defer s.release(handle)

	keys, err := client.ListKeys(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: session: kmd list keys: %w", apperr.ErrConfiguration, err)
	}
	if len(keys.Addresses) == 0 {
		return nil, fmt.Errorf("%w: session: kmd wallet %q has no keys", apperr.ErrConfiguration, walletName)
	}

	want := strings.TrimSpace(cfg.Address)
	switch {
	case want == "":
		s.address = keys.Addresses[0]
	case slices.Contains(keys.Addresses, want):
		s.address = want
	default:
		return nil, fmt.Errorf("%w: session: kmd wallet %q does not hold %s", apperr.ErrConfiguration, walletName, want)
	}

	log.Info("kmd signer ready", "wallet", walletName, "address", s.address)
	return s, nil
}

func (k *KMDSigner) Address() string { return k.address }

func (k *KMDSigner) SignTransaction(_ context.Context, tx types.Transaction) ([]byte, error) {
	handle, err := k.open()
	if err != nil {
		return nil, err
	}
	defer k.release(handle)

	resp, err := k.client.SignTransaction(handle, k.password, tx)
	if err != nil {
		return nil, fmt.Errorf("session: kmd sign: %w", err)
	}
	return resp.SignedTransaction, nil
}

func (k *KMDSigner) open() (string, error) {
	resp, err := k.client.InitWalletHandle(k.walletID, k.password)
	if err != nil {
		return "", fmt.Errorf("session: kmd open wallet: %w", err)
	}
	return resp.WalletHandleToken, nil
}

func (k *KMDSigner) release(handle string) {
	if _, err := k.client.ReleaseWalletHandle(handle); err != nil {
		log.Warn("kmd release wallet handle failed", "error", err)
	}
}
