package session

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algomintai/algomint/internal/apperr"
)

// AccountSigner signs with an in-memory ed25519 key.
type AccountSigner struct {
	account crypto.Account
}

func NewAccountSigner(sk ed25519.PrivateKey) (*AccountSigner, error) {
	acct, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("session: account from key: %w", err)
	}
	return &AccountSigner{account: acct}, nil
}

// NewAccountSignerFromMnemonic accepts the 25-word account mnemonic.
func NewAccountSignerFromMnemonic(words string) (*AccountSigner, error) {
	words = strings.Join(strings.Fields(words), " ")
	if words == "" {
		return nil, fmt.Errorf("%w: signer mnemonic is empty", apperr.ErrConfiguration)
	}
	sk, err := mnemonic.ToPrivateKey(words)
	if err != nil {
		return nil, fmt.Errorf("%w: signer mnemonic: %w", apperr.ErrConfiguration, err)
	}
	return NewAccountSigner(sk)
}

func (a *AccountSigner) Address() string {
	return a.account.Address.String()
}

func (a *AccountSigner) SignTransaction(_ context.Context, tx types.Transaction) ([]byte, error) {
	_, stx, err := crypto.SignTransaction(a.account.PrivateKey, tx)
	if err != nil {
		return nil, fmt.Errorf("session: sign: %w", err)
	}
	return stx, nil
}
