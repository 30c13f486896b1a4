// Package storefront creates products on the Shopify Admin REST API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	service           = "shopify"
	DefaultAPIVersion = "2023-01"
	maxResponseSize   = 10 * 1024 * 1024
)

var (
	// ErrNoImage means the created product came back without any image.
	// The pipeline cannot continue without its canonical image URL.
	ErrNoImage = fmt.Errorf("storefront product has no image: %w", domain.ErrMissingField)

	ErrNotConfigured = errors.New("storefront: store and access token are required")
)

// Publisher creates one product and returns the canonical image URL the
// storefront assigned to it.
type Publisher interface {
	CreateProduct(ctx context.Context, p domain.ProductRecord) (string, error)
}

type Config struct {
	// Store is the shop domain ("example.myshopify.com") or a full base URL.
	Store      string
	Token      string
	APIVersion string
}

type Shopify struct {
	baseURL string
	token   string
	version string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Shopify)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Shopify) { s.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Shopify) { s.log = l }
}

func NewShopify(cfg Config, opts ...Option) (*Shopify, error) {
	if cfg.Store == "" || cfg.Token == "" {
		return nil, ErrNotConfigured
	}

	base := strings.TrimRight(cfg.Store, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	s := &Shopify{
		baseURL: base,
		token:   cfg.Token,
		version: version,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type productImage struct {
	Src string `json:"src"`
}

type product struct {
	ID          int64          `json:"id,omitempty"`
	Title       string         `json:"title"`
	Handle      string         `json:"handle"`
	BodyHTML    string         `json:"body_html"`
	Vendor      string         `json:"vendor"`
	ProductType string         `json:"product_type"`
	Tags        string         `json:"tags"`
	Images      []productImage `json:"images"`
}

type productEnvelope struct {
	Product product `json:"product"`
}

func (s *Shopify) CreateProduct(ctx context.Context, p domain.ProductRecord) (string, error) {
	in := productEnvelope{Product: product{
		Title:       p.Title,
		Handle:      p.Handle,
		BodyHTML:    p.Description,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        p.TagList(),
		Images:      []productImage{},
	}}
	if p.ImageURL != "" {
		in.Product.Images = append(in.Product.Images, productImage{Src: p.ImageURL})
	}

	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("shopify: encode product: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s/products.json", s.baseURL, s.version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("shopify: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("shopify: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.NewUpstreamError(service, "create-product", resp.StatusCode, respBody)
	}

	var out productEnvelope
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("shopify: decode response: %w", err)
	}
	if len(out.Product.Images) == 0 || out.Product.Images[0].Src == "" {
		return "", ErrNoImage
	}

	s.log.Info("storefront product created",
		zap.Int64("product_id", out.Product.ID),
		zap.String("handle", out.Product.Handle),
		zap.String("image_url", out.Product.Images[0].Src),
	)
	return out.Product.Images[0].Src, nil
}
