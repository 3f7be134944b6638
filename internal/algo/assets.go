package algo

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/constants"
)

// Signer authorizes transactions for one address.
type Signer interface {
	Address() string
	SignTransaction(ctx context.Context, tx types.Transaction) ([]byte, error)
}

// AssetCreate is the parameter set of a single-unit asset.
type AssetCreate struct {
	AssetName    string
	UnitName     string
	URL          string
	MetadataHash [32]byte
	Manager      string // empty leaves the asset without a manager
}

// Submission is the outcome of a confirmed transaction.
type Submission struct {
	TxID           string
	AssetID        uint64
	ConfirmedRound uint64
}

// CreateAsset submits an asset-create with total 1, decimals 0, not frozen,
// and waits for it to be confirmed.
func (c *Client) CreateAsset(ctx context.Context, signer Signer, p AssetCreate) (Submission, error) {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: suggested params: %w", apperr.ErrChainSubmission, err)
	}

	tx, err := transaction.MakeAssetCreateTxn(
		signer.Address(), nil, sp,
		constants.NFTTotal, constants.NFTDecimals, false,
		p.Manager, "", "", "",
		p.UnitName, p.AssetName, p.URL, "",
	)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: build asset create: %w", apperr.ErrChainSubmission, err)
	}
	tx.AssetParams.MetadataHash = p.MetadataHash

	return c.submit(ctx, signer, tx)
}

// DestroyAsset submits an asset-destroy. The chain rejects it unless the
// sender is the manager and holds every unit.
func (c *Client) DestroyAsset(ctx context.Context, signer Signer, assetID uint64) (Submission, error) {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: suggested params: %w", apperr.ErrChainSubmission, err)
	}

	tx, err := transaction.MakeAssetDestroyTxn(signer.Address(), nil, sp, assetID)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: build asset destroy: %w", apperr.ErrChainSubmission, err)
	}
	return c.submit(ctx, signer, tx)
}

func (c *Client) submit(ctx context.Context, signer Signer, tx types.Transaction) (Submission, error) {
	stx, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: sign: %w", apperr.ErrChainSubmission, err)
	}

	txID, err := c.algod.SendRawTransaction(stx).Do(ctx)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: send: %w", apperr.ErrChainSubmission, err)
	}

	info, err := transaction.WaitForConfirmation(c.algod, txID, constants.ConfirmationWaitRounds, ctx)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: confirm %s: %w", apperr.ErrChainSubmission, txID, err)
	}

	return Submission{TxID: txID, AssetID: info.AssetIndex, ConfirmedRound: info.ConfirmedRound}, nil
}
