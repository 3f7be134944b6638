package assets

import (
	"context"
	"fmt"
	"math"

	"github.com/algomintai/algomint/internal/apperr"
)

// fetchMetadata dereferences an asset url. Any failure is an ErrMetadataFetch
// and never escapes ListOwned.
func (m *Manager) fetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	var raw map[string]any
	if err := m.gateway.FetchJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrMetadataFetch, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s: not a json object", apperr.ErrMetadataFetch, url)
	}
	return parseMetadata(raw), nil
}

func parseMetadata(raw map[string]any) *Metadata {
	md := &Metadata{
		Name:           str(raw, "name"),
		Description:    str(raw, "description"),
		Image:          str(raw, "image"),
		UnitName:       str(raw, "unitName"),
		ImageIntegrity: str(raw, "image_integrity"),
		ImageMimetype:  str(raw, "image_mimetype"),
		Collection:     str(raw, "collection"),
	}
	if d, ok := raw["decimals"].(float64); ok && d == math.Trunc(d) && d >= 0 {
		n := int(d)
		md.Decimals = &n
	}
	if p, ok := raw["properties"].(map[string]any); ok {
		md.Properties = p
	}
	return md
}

func str(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
