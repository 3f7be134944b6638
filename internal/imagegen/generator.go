package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/constants"
	"github.com/algomintai/algomint/internal/ipfs"
)

type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Size    string `mapstructure:"size"`
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (ipfs.Locator, error)
}

// Generator turns prompts into pinned images.
type Generator struct {
	client     *openai.Client // nil when no api key is configured
	cfg        Config
	uploader   Uploader
	httpClient *http.Client
}

func New(cfg Config, uploader Uploader, httpClient *http.Client) *Generator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Model == "" {
		cfg.Model = openai.CreateImageModelDallE3
	}
	if cfg.Size == "" {
		cfg.Size = openai.CreateImageSize1024x1024
	}

	g := &Generator{cfg: cfg, uploader: uploader, httpClient: httpClient}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		oc := openai.DefaultConfig(key)
		if cfg.BaseURL != "" {
			oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		oc.HTTPClient = httpClient
		g.client = openai.NewClientWithConfig(oc)
	}
	return g
}

// Generate asks the image model for one picture, pins it, and returns its
// gateway locator.
func (g *Generator) Generate(ctx context.Context, prompt, collectionName string) (ipfs.Locator, error) {
	if g.client == nil {
		return ipfs.Locator{}, fmt.Errorf("%w: image generation api key is not set", apperr.ErrConfiguration)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: prompt is required", apperr.ErrInvalidInput)
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.cfg.Model,
		N:              1,
		Size:           g.cfg.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("%w: create image: %w", apperr.ErrGeneration, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return ipfs.Locator{}, fmt.Errorf("%w: no image url returned", apperr.ErrGeneration)
	}

	data, err := g.download(ctx, resp.Data[0].URL)
	if err != nil {
		return ipfs.Locator{}, err
	}

	loc, err := g.uploader.Upload(ctx, data, constants.GeneratedImageFileName, constants.DefaultImageMimetype)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("imagegen: pin generated image: %w", err)
	}

	log.Info("image generated", "collection", collectionName, "cid", loc.CID, "bytes", len(data))
	return loc, nil
}

// Pin uploads a user-supplied image as is.
func (g *Generator) Pin(ctx context.Context, data []byte, filename, contentType string) (ipfs.Locator, error) {
	if len(data) == 0 {
		return ipfs.Locator{}, fmt.Errorf("%w: file is empty", apperr.ErrInvalidInput)
	}
	if filename == "" {
		filename = "upload"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	loc, err := g.uploader.Upload(ctx, data, filename, contentType)
	if err != nil {
		return ipfs.Locator{}, fmt.Errorf("imagegen: pin %s: %w", filename, err)
	}
	return loc, nil
}

func (g *Generator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %w", apperr.ErrGeneration, err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %w", apperr.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: download: status %d", apperr.ErrGeneration, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: download: %w", apperr.ErrGeneration, err)
	}
	return data, nil
}
