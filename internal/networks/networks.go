package networks

import (
	"fmt"
	"strings"
)

type Network struct {
	Name      string `json:"name"`
	GenesisID string `json:"genesisId,omitempty"`

	// AssetExplorer and AccountExplorer take the asset id or address appended.
	AssetExplorer   string `json:"assetExplorer"`
	AccountExplorer string `json:"accountExplorer"`
	TxExplorer      string `json:"txExplorer"`
}

const loraBase = "https://lora.algokit.io/"

var known = map[string]Network{
	"mainnet": {
		Name:            "mainnet",
		GenesisID:       "mainnet-v1.0",
		AssetExplorer:   "https://explorer.perawallet.app/asset/",
		AccountExplorer: loraBase + "mainnet/account/",
		TxExplorer:      loraBase + "mainnet/transaction/",
	},
	"testnet": {
		Name:            "testnet",
		GenesisID:       "testnet-v1.0",
		AssetExplorer:   "https://testnet.explorer.perawallet.app/asset/",
		AccountExplorer: loraBase + "testnet/account/",
		TxExplorer:      loraBase + "testnet/transaction/",
	},
	"betanet": {
		Name:            "betanet",
		GenesisID:       "betanet-v1.0",
		AssetExplorer:   loraBase + "betanet/asset/",
		AccountExplorer: loraBase + "betanet/account/",
		TxExplorer:      loraBase + "betanet/transaction/",
	},
	"localnet": {
		Name:            "localnet",
		AssetExplorer:   loraBase + "localnet/asset/",
		AccountExplorer: loraBase + "localnet/account/",
		TxExplorer:      loraBase + "localnet/transaction/",
	},
}

var aliases = map[string]string{
	"main":    "mainnet",
	"test":    "testnet",
	"beta":    "betanet",
	"local":   "localnet",
	"sandbox": "localnet",
	"devnet":  "localnet",
}

func normalizeNetworkKey(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[k]; ok {
		return a
	}
	return k
}

// Lookup resolves a configured network name, accepting common aliases.
func Lookup(name string) (Network, error) {
	k := normalizeNetworkKey(name)
	if k == "" {
		return Network{}, fmt.Errorf("networks: name is empty")
	}
	n, ok := known[k]
	if !ok {
		return Network{}, fmt.Errorf("networks: unknown network %q", name)
	}
	return n, nil
}

func (n Network) AssetURL(id uint64) string {
	return fmt.Sprintf("%s%d", n.AssetExplorer, id)
}

func (n Network) AccountURL(address string) string {
	return n.AccountExplorer + address
}

func (n Network) TxURL(txID string) string {
	return n.TxExplorer + txID
}
