// Package marketplace submits encoded feeds to the Selling Partner feeds API
// and follows them to a processing report.
package marketplace

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	DefaultEndpoint = "https://sellingpartnerapi-na.amazon.com"
	feedsPath       = "/feeds/2021-06-30"

	maxResponseSize = 10 * 1024 * 1024

	defaultRequestsPerSecond = 1
	defaultBurst             = 5
	defaultRegisterRetries   = 3
	defaultRegisterDelay     = 5 * time.Second
)

type Config struct {
	Endpoint      string
	MarketplaceID string

	RequestsPerSecond float64
	Burst             int

	// RegisterRetries is how many times feed registration is retried after
	// the first attempt is throttled. Zero means 3; negative disables retries.
	RegisterRetries int
	RegisterBackoff Backoff

	// OnRetry, when set, is called before each throttled registration retry.
	OnRetry func(attempt int)
}

type Client struct {
	cfg     Config
	tokens  TokenProvider
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, tokens TokenProvider, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.RegisterRetries < 0 {
		cfg.RegisterRetries = 0
	} else if cfg.RegisterRetries == 0 {
		cfg.RegisterRetries = defaultRegisterRetries
	}
	if cfg.RegisterBackoff == nil {
		cfg.RegisterBackoff = FixedBackoff{Interval: defaultRegisterDelay}
	}

	c := &Client{
		cfg:     cfg,
		tokens:  tokens,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentTarget is the upload slot returned by CreateDocument.
type DocumentTarget struct {
	DocumentID string `json:"feedDocumentId"`
	URL        string `json:"url"`
}

// DocumentRef points at a stored document (usually a processing report).
type DocumentRef struct {
	DocumentID           string `json:"feedDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm,omitempty"`
}

// FeedStatus is one observation of a registered feed.
type FeedStatus struct {
	FeedID           string
	FeedType         domain.FeedType
	Status           domain.ProcessingStatus
	Raw              string
	ResultDocumentID string
}

// CreateDocument asks for an upload target for a document of contentType.
func (c *Client) CreateDocument(ctx context.Context, contentType string) (DocumentTarget, error) {
	var out DocumentTarget
	err := c.call(ctx, "create-document", http.MethodPost, feedsPath+"/documents",
		map[string]string{"contentType": contentType}, &out)
	if err != nil {
		return DocumentTarget{}, err
	}
	if out.DocumentID == "" || out.URL == "" {
		return DocumentTarget{}, fmt.Errorf("create-document: feedDocumentId/url: %w", domain.ErrMissingField)
	}
	return out, nil
}

// Upload PUTs body to the target with the content type declared when the
// target was created.
func (c *Client) Upload(ctx context.Context, target DocumentTarget, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	_, err = c.do(req, "upload")
	return err
}

type createFeedRequest struct {
	FeedType            domain.FeedType `json:"feedType"`
	MarketplaceIDs      []string        `json:"marketplaceIds"`
	InputFeedDocumentID string          `json:"inputFeedDocumentId"`
}

// CreateFeed registers an uploaded document as a feed. Throttled attempts are
// retried with the configured backoff until the retry budget runs out.
func (c *Client) CreateFeed(ctx context.Context, feedType domain.FeedType, documentID string) (string, error) {
	in := createFeedRequest{
		FeedType:            feedType,
		MarketplaceIDs:      []string{c.cfg.MarketplaceID},
		InputFeedDocumentID: documentID,
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RegisterRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("feed registration throttled, retrying",
				zap.Int("attempt", attempt),
				zap.String("document_id", documentID),
			)
			if c.cfg.OnRetry != nil {
				c.cfg.OnRetry(attempt)
			}
			if err := c.cfg.RegisterBackoff.Wait(ctx, attempt); err != nil {
				return "", err
			}
		}

		var out struct {
			FeedID string `json:"feedId"`
		}
		err := c.call(ctx, "create-feed", http.MethodPost, feedsPath+"/feeds", in, &out)
		if err == nil {
			if out.FeedID == "" {
				return "", fmt.Errorf("create-feed: feedId: %w", domain.ErrMissingField)
			}
			return out.FeedID, nil
		}
		if domain.StatusOf(err) != http.StatusTooManyRequests {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRateLimited, c.cfg.RegisterRetries+1, lastErr)
}

type feedResponse struct {
	FeedID               string          `json:"feedId"`
	FeedType             domain.FeedType `json:"feedType"`
	ProcessingStatus     string          `json:"processingStatus"`
	ResultFeedDocumentID string          `json:"resultFeedDocumentId"`
}

func (c *Client) GetFeed(ctx context.Context, feedID string) (FeedStatus, error) {
	var out feedResponse
	if err := c.call(ctx, "get-feed", http.MethodGet, feedsPath+"/feeds/"+url.PathEscape(feedID), nil, &out); err != nil {
		return FeedStatus{}, err
	}

	st, err := MapStatus(out.ProcessingStatus)
	if err != nil {
		return FeedStatus{}, fmt.Errorf("get-feed %s: %w", feedID, err)
	}

	id := out.FeedID
	if id == "" {
		id = feedID
	}
	return FeedStatus{
		FeedID:           id,
		FeedType:         out.FeedType,
		Status:           st,
		Raw:              out.ProcessingStatus,
		ResultDocumentID: out.ResultFeedDocumentID,
	}, nil
}

// MapStatus converts a marketplace processingStatus into a ProcessingStatus.
func MapStatus(raw string) (domain.ProcessingStatus, error) {
	switch raw {
	case "IN_QUEUE":
		return domain.StatusSubmitted, nil
	case "IN_PROGRESS":
		return domain.StatusInProgress, nil
	case "DONE":
		return domain.StatusDone, nil
	case "FATAL":
		return domain.StatusError, nil
	case "CANCELLED":
		return domain.StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}

func (c *Client) GetDocument(ctx context.Context, documentID string) (DocumentRef, error) {
	var out DocumentRef
	if err := c.call(ctx, "get-document", http.MethodGet, feedsPath+"/documents/"+url.PathEscape(documentID), nil, &out); err != nil {
		return DocumentRef{}, err
	}
	if out.URL == "" {
		return DocumentRef{}, fmt.Errorf("get-document: url: %w", domain.ErrMissingField)
	}
	return out, nil
}

// Report fetches the processing report of a finished feed. ok is false, with
// ReportNotAvailable as text, while the feed has no result document.
func (c *Client) Report(ctx context.Context, st FeedStatus) (string, bool, error) {
	if st.Status != domain.StatusDone || st.ResultDocumentID == "" {
		return ReportNotAvailable, false, nil
	}

	ref, err := c.GetDocument(ctx, st.ResultDocumentID)
	if err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return "", false, fmt.Errorf("report: build request: %w", err)
	}
	body, err := c.do(req, "report")
	if err != nil {
		return "", false, err
	}

	if strings.EqualFold(ref.CompressionAlgorithm, "GZIP") {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return "", false, fmt.Errorf("report: gunzip: %w", err)
		}
		defer zr.Close()

		body, err = io.ReadAll(io.LimitReader(zr, maxResponseSize))
		if err != nil {
			return "", false, fmt.Errorf("report: gunzip: %w", err)
		}
	}

	return string(body), true, nil
}

// call sends an authorized, rate-limited JSON request to the feeds API.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s: access token: %w", op, err)
		}
		req.Header.Set("x-amz-access-token", tok)
	}

	b, err := c.do(req, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewUpstreamError(service, op, resp.StatusCode, b)
	}
	return b, nil
}
