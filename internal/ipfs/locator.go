package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/algomintai/algomint/internal/constants"
)

// Locator addresses an immutable pinned object.
type Locator struct {
	CID     string `json:"cid"`
	URI     string `json:"uri"` // ipfs://<cid>
	HTTPURL string `json:"url"` // <gateway>/ipfs/<cid>
}

// Gateway rewrites content-addressed URIs to HTTP and fetches documents through them.
type Gateway struct {
	base       string
	httpClient *http.Client
}

func NewGateway(base string, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gateway{
		base:       strings.TrimRight(strings.TrimSpace(base), "/"),
		httpClient: httpClient,
	}
}

func (g *Gateway) Base() string { return g.base }

// Locate builds a Locator for a CID returned by a pinning service.
func (g *Gateway) Locate(raw string) (Locator, error) {
	c, err := cid.Decode(strings.TrimSpace(raw))
	if err != nil {
		return Locator{}, fmt.Errorf("ipfs: invalid cid %q: %w", raw, err)
	}
	s := c.String()
	return Locator{
		CID:     s,
		URI:     constants.IPFSScheme + s,
		HTTPURL: g.base + constants.IPFSPathSegment + s,
	}, nil
}

// ToHTTP rewrites ipfs://<cid> to <gateway>/ipfs/<cid>. Anything else is returned as is.
func (g *Gateway) ToHTTP(uri string) string {
	uri = strings.TrimSpace(uri)
	if rest, ok := strings.CutPrefix(uri, constants.IPFSScheme); ok {
		return g.base + constants.IPFSPathSegment + rest
	}
	return uri
}

// FetchJSON dereferences uri and decodes the body into out.
func (g *Gateway) FetchJSON(ctx context.Context, uri string, out any) error {
	target := g.ToHTTP(uri)
	if target == "" {
		return fmt.Errorf("ipfs: empty uri")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("ipfs: build request: %w", err)
	}
	req.Header.Set("Accept", constants.JSONMimetype)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ipfs: get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ipfs: get %s: status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.MaxDocumentBytes)).Decode(out); err != nil {
		return fmt.Errorf("ipfs: decode %s: %w", target, err)
	}
	return nil
}

// CIDFromURL extracts the content identifier from a gateway URL
// (https://host/ipfs/<cid>[/path]) or an ipfs://<cid> URI.
func CIDFromURL(u string) (string, error) {
	u = strings.TrimSpace(u)

	var rest string
	if r, ok := strings.CutPrefix(u, constants.IPFSScheme); ok {
		rest = r
	} else if _, r, ok := strings.Cut(u, constants.IPFSPathSegment); ok {
		rest = r
	} else {
		return "", fmt.Errorf("ipfs: no content identifier in %q", u)
	}

	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}

	c, err := cid.Decode(rest)
	if err != nil {
		return "", fmt.Errorf("ipfs: invalid cid in %q: %w", u, err)
	}
	return c.String(), nil
}
