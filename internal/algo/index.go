package algo

import (
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"

	"github.com/algomintai/algomint/internal/apperr"
)

// IndexedAsset is the index service's view of an asset's params.
type IndexedAsset struct {
	ID       uint64
	Name     string
	UnitName string
	URL      string
	Creator  string
	Manager  string
	Decimals uint64
	Total    uint64
}

// AssetsByCreator returns every live asset created by address, following
// pagination until the index service stops returning a next token.
func (c *Client) AssetsByCreator(ctx context.Context, address string) ([]IndexedAsset, error) {
	var (
		out  []IndexedAsset
		next string
	)
	for {
		q := c.indexer.SearchForAssets().Creator(address)
		if next != "" {
			q = q.NextToken(next)
		}

		page, err := q.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: assets by creator %s: %w", apperr.ErrIndex, address, err)
		}
		for _, a := range page.Assets {
			if a.Deleted {
				continue
			}
			out = append(out, fromModel(a))
		}

		if page.NextToken == "" || len(page.Assets) == 0 {
			return out, nil
		}
		next = page.NextToken
	}
}

func fromModel(a models.Asset) IndexedAsset {
	return IndexedAsset{
		ID:       a.Index,
		Name:     a.Params.Name,
		UnitName: a.Params.UnitName,
		URL:      a.Params.Url,
		Creator:  a.Params.Creator,
		Manager:  a.Params.Manager,
		Decimals: a.Params.Decimals,
		Total:    a.Params.Total,
	}
}
