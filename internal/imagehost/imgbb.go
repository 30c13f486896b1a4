package imagehost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	DefaultImgBBURL = "https://api.imgbb.com/1/upload"
	maxResponseSize = 10 * 1024 * 1024
)

type ImgBBConfig struct {
	APIKey string
	URL    string
}

type ImgBB struct {
	key      string
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

type ImgBBOption func(*ImgBB)

func WithImgBBHTTPClient(hc *http.Client) ImgBBOption {
	return func(i *ImgBB) { i.http = hc }
}

func WithImgBBLogger(l *zap.Logger) ImgBBOption {
	return func(i *ImgBB) { i.log = l }
}

func NewImgBB(cfg ImgBBConfig, opts ...ImgBBOption) (*ImgBB, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: imgbb api key is required", ErrNotConfigured)
	}
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultImgBBURL
	}

	i := &ImgBB{
		key:      cfg.APIKey,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
}

func (i *ImgBB) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	form := url.Values{}
	form.Set("key", i.key)
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	if name != "" {
		form.Set("name", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("imgbb: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgbb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("imgbb: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.NewUpstreamError("imgbb", "upload", resp.StatusCode, body)
	}

	var out imgbbResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("imgbb: decode response: %w", err)
	}
	if out.Data.URL == "" {
		return "", fmt.Errorf("imgbb: data.url: %w", domain.ErrMissingField)
	}

	i.log.Info("image uploaded", zap.String("name", name), zap.String("image_url", out.Data.URL))
	return out.Data.URL, nil
}
