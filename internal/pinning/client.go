package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/algomintai/algomint/internal/apperr"
)

const (
	DefaultUploadsBase     = "https://uploads.pinata.cloud"
	DefaultSignedURLExpiry = 30 * time.Second

	signPath = "/v3/files/sign"
)

type Config struct {
	JWT             string        `mapstructure:"jwt"`
	UploadsBase     string        `mapstructure:"uploads_base"`
	SignedURLExpiry time.Duration `mapstructure:"signed_url_expiry"`
}

// Client talks to the pinning service's management API with the account JWT.
// The JWT never leaves the server; browsers only ever see signed upload URLs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.JWT = strings.TrimSpace(cfg.JWT)
	if cfg.JWT == "" {
		return nil, fmt.Errorf("%w: pinning: jwt is required", apperr.ErrConfiguration)
	}
	if cfg.UploadsBase == "" {
		cfg.UploadsBase = DefaultUploadsBase
	}
	cfg.UploadsBase = strings.TrimRight(cfg.UploadsBase, "/")
	if cfg.SignedURLExpiry <= 0 {
		cfg.SignedURLExpiry = DefaultSignedURLExpiry
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}, nil
}

type signRequest struct {
	Date    int64 `json:"date"`
	Expires int64 `json:"expires"`
}

type signResponse struct {
	Data string `json:"data"`
}

// SignUploadURL returns a short-lived URL that accepts exactly one public upload.
func (c *Client) SignUploadURL(ctx context.Context) (string, error) {
	body, err := json.Marshal(signRequest{
		Date:    c.now().Unix(),
		Expires: int64(c.cfg.SignedURLExpiry / time.Second),
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign url: marshal: %w", apperr.ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.UploadsBase+signPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: sign url: build request: %w", apperr.ErrUpload, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sign url: %w", apperr.ErrUpload, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: sign url: read response: %w", apperr.ErrUpload, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: sign url: status %d: %s", apperr.ErrUpload, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out signResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: sign url: decode: %w", apperr.ErrUpload, err)
	}
	if strings.TrimSpace(out.Data) == "" {
		return "", fmt.Errorf("%w: sign url: empty url in response", apperr.ErrUpload)
	}
	return out.Data, nil
}
