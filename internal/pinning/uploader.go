package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/ipfs"
)

// Authorizer hands out single-use upload targets.
type Authorizer interface {
	SignUploadURL(ctx context.Context) (string, error)
}

type Uploader struct {
	auth       Authorizer
	gateway    *ipfs.Gateway
	httpClient *http.Client
}

func NewUploader(auth Authorizer, gateway *ipfs.Gateway, httpClient *http.Client) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Uploader{auth: auth, gateway: gateway, httpClient: httpClient}
}

type uploadResponse struct {
	Data struct {
		ID  string `json:"id"`
		CID string `json:"cid"`
	} `json:"data"`
}

// Upload pins data publicly and returns where it can be found.
func (u *Uploader) Upload(ctx context.Context, data []byte, filename, mimeType string) (loc ipfs.Locator, err error) {
	defer func() { recordUpload(ctx, len(data), mimeType, err) }()

	target, err := u.auth.SignUploadURL(ctx)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: authorize %s: %w", apperr.ErrUpload, filename, err)
	}

	body, contentType, err := multipartBody(data, filename, mimeType)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: encode %s: %w", apperr.ErrUpload, filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: build request: %w", apperr.ErrUpload, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: transfer %s: %w", apperr.ErrUpload, filename, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: read response: %w", apperr.ErrUpload, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ipfs.Locator{}, fmt.Errorf("%w: transfer %s rejected: status %d: %s",
			apperr.ErrUpload, filename, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: decode response: %w", apperr.ErrUpload, err)
	}
	if out.Data.CID == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: response for %s has no cid", apperr.ErrUpload, filename)
	}

	loc, err = u.gateway.Locate(out.Data.CID)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: %w", apperr.ErrUpload, err)
	}

	log.Info("pinned file", "filename", filename, "cid", loc.CID, "bytes", len(data))
	return loc, nil
}

func multipartBody(data []byte, filename, mimeType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("network", "public"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
