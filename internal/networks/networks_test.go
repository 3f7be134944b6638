package networks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"testnet", "testnet"},
		{" MainNet ", "mainnet"},
		{"local", "localnet"},
		{"sandbox", "localnet"},
		{"beta", "betanet"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := Lookup(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Name)
		})
	}

	_, err := Lookup("")
	require.Error(t, err)
	_, err = Lookup("ethereum")
	require.Error(t, err)
}

func TestExplorerURLs(t *testing.T) {
	n, err := Lookup("testnet")
	require.NoError(t, err)

	assert.Equal(t, "https://testnet.explorer.perawallet.app/asset/1234", n.AssetURL(1234))
	assert.Equal(t, "https://lora.algokit.io/testnet/account/ADDR", n.AccountURL("ADDR"))
	assert.Equal(t, "https://lora.algokit.io/testnet/transaction/TX1", n.TxURL("TX1"))

	local, err := Lookup("localnet")
	require.NoError(t, err)
	assert.Equal(t, "https://lora.algokit.io/localnet/asset/7", local.AssetURL(7))
}
