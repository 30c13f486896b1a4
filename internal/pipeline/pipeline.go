// Package pipeline runs the listing flow for product images: image upload,
// storefront product, feed build, marketplace submission and, optionally,
// waiting for the processing report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/feed"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/imagehost"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/marketplace"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/storefront"
)

const DefaultEncoding = "tabular"

// Marketplace is the part of *marketplace.Client the pipeline drives.
type Marketplace interface {
	Submit(ctx context.Context, p feed.Payload) (marketplace.Handle, error)
	WaitForFeed(ctx context.Context, feedID string, poll marketplace.Poll) (marketplace.FeedStatus, error)
	Report(ctx context.Context, st marketplace.FeedStatus) (string, bool, error)
}

type Image struct {
	Name string
	Data []byte

	// Title overrides the title derived from Name.
	Title string
}

func (img Image) title() string {
	if t := strings.TrimSpace(img.Title); t != "" {
		return t
	}
	return catalog.StemFromFilename(img.Name)
}

// Product is what one image turned into before submission.
type Product struct {
	Title              string
	HostedImageURL     string
	StorefrontImageURL string
	ParentSKU          string
	ChildSKUs          []string
}

type FeedResult struct {
	RunID      string
	FeedType   domain.FeedType
	Encoding   string
	Records    int
	DocumentID string
	FeedID     string
	Status     domain.ProcessingStatus

	ResultDocumentID string
	Report           string
}

type Result struct {
	BatchID  string
	Products []Product
	Feeds    []FeedResult
}

// Feed returns the first feed of type ft.
func (r Result) Feed(ft domain.FeedType) (FeedResult, bool) {
	for _, f := range r.Feeds {
		if f.FeedType == ft {
			return f, true
		}
	}
	return FeedResult{}, false
}

type Pipeline struct {
	Images      imagehost.Uploader
	Storefront  storefront.Publisher
	Marketplace Marketplace

	Catalog catalog.Catalog
	Feeds   feed.Registry

	// Encoding names the listings encoder, "tabular" or "json".
	Encoding string

	// ContentTokens appends a token derived from the image bytes to every SKU
	// so two images with the same title do not collide.
	ContentTokens bool

	// ImageFeed also submits an image-association feed for the listings.
	ImageFeed bool

	// Poll waits for each feed when Attempts > 0. A feed still processing
	// when the budget runs out is left for the reconciler.
	Poll marketplace.Poll

	// Store, when set, records every submitted feed.
	Store state.Store

	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Progress func(ProgressEvent)

	newID func() string
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) id() string {
	if p.newID != nil {
		return p.newID()
	}
	return uuid.NewString()
}

func (p *Pipeline) encoding() string {
	if p.Encoding == "" {
		return DefaultEncoding
	}
	return p.Encoding
}

func (p *Pipeline) catalog() catalog.Catalog {
	if len(p.Catalog.Variations) == 0 {
		return catalog.Default()
	}
	return p.Catalog
}

func (p *Pipeline) registry() feed.Registry {
	if len(p.Feeds.Names()) == 0 {
		return feed.DefaultRegistry("", "")
	}
	return p.Feeds
}

func (p *Pipeline) check() error {
	switch {
	case p.Images == nil:
		return errors.New("pipeline: image host is nil")
	case p.Storefront == nil:
		return errors.New("pipeline: storefront is nil")
	case p.Marketplace == nil:
		return errors.New("pipeline: marketplace is nil")
	}
	return nil
}

// Run lists one image: one parent plus one child per catalog variation in a
// single listings feed. Any stage failure aborts the rest of the run.
func (p *Pipeline) Run(ctx context.Context, img Image) (Result, error) {
	if err := p.check(); err != nil {
		return Result{}, err
	}

	res := Result{BatchID: p.id()}

	prod, doc, err := p.prepare(ctx, img)
	if err != nil {
		return res, err
	}
	res.Products = append(res.Products, prod)

	return p.submitAll(ctx, res, doc, false)
}

// prepare uploads the image, creates the storefront product and builds its
// listings block.
func (p *Pipeline) prepare(ctx context.Context, img Image) (Product, feed.Document, error) {
	title := img.title()
	prod := Product{Title: title}
	cat := p.catalog()

	err := p.step(StageUpload, title, func() (outcome, error) {
		if title == "" {
			return outcome{}, fmt.Errorf("%w: no title for image %q", feed.ErrInvalidInput, img.Name)
		}
		u, err := p.Images.Upload(ctx, img.Name, img.Data)
		if err != nil {
			return outcome{}, err
		}
		prod.HostedImageURL = u
		return done(u, zap.String("image_url", u)), nil
	})
	if err != nil {
		return prod, feed.Document{}, err
	}

	err = p.step(StageStorefront, title, func() (outcome, error) {
		u, err := p.Storefront.CreateProduct(ctx, domain.ProductRecord{
			Title:       cat.DisplayTitle(title),
			Handle:      cat.Handle(title),
			Description: cat.Description,
			Vendor:      cat.Vendor,
			ProductType: cat.StorefrontType,
			Tags:        cat.Tags,
			ImageURL:    prod.HostedImageURL,
		})
		if err != nil {
			return outcome{}, err
		}
		prod.StorefrontImageURL = u
		return done(u, zap.String("image_url", u)), nil
	})
	if err != nil {
		return prod, feed.Document{}, err
	}

	var doc feed.Document
	err = p.step(StageBuild, title, func() (outcome, error) {
		in := feed.Input{
			Title:    title,
			ImageURL: prod.StorefrontImageURL,
			Catalog:  cat,
		}
		if p.ContentTokens {
			in.Token = catalog.ContentToken(img.Data)
		}

		d, err := feed.Build(in)
		if err != nil {
			return outcome{}, err
		}
		doc = d
		prod.ParentSKU = d.Parents()[0].SKU
		prod.ChildSKUs = d.ChildSKUs()

		return done(fmt.Sprintf("%d records, parent %s", d.Len(), prod.ParentSKU),
			zap.Int("records", d.Len()),
			zap.String("parent_sku", prod.ParentSKU),
		), nil
	})
	return prod, doc, err
}

// submitAll sends the listings feed, then the inventory feed when withInventory
// is set, then the image feed when enabled.
func (p *Pipeline) submitAll(ctx context.Context, res Result, listings feed.Document, withInventory bool) (Result, error) {
	titles := make([]string, 0, len(res.Products))
	for _, prod := range res.Products {
		titles = append(titles, prod.Title)
	}

	type encoded struct {
		encoding string
		doc      feed.Document
	}

	docs := []encoded{{p.encoding(), listings}}
	if withInventory {
		inv, err := feed.InventoryFrom(listings, p.catalog())
		if err != nil {
			return res, &StageError{Stage: StageEncode, Err: err}
		}
		docs = append(docs, encoded{"inventory", inv})
	}
	if p.ImageFeed {
		img, err := feed.ImagesFrom(listings)
		if err != nil {
			return res, &StageError{Stage: StageEncode, Err: err}
		}
		docs = append(docs, encoded{"image", img})
	}

	for _, d := range docs {
		fr, err := p.submit(ctx, res.BatchID, d.encoding, d.doc, titles)
		if err != nil {
			return res, err
		}
		res.Feeds = append(res.Feeds, fr)
	}
	return res, nil
}

// submit encodes doc, runs the three-step submission, records it and, when
// polling is enabled, waits for the report.
func (p *Pipeline) submit(ctx context.Context, batchID, encoding string, doc feed.Document, titles []string) (FeedResult, error) {
	var payload feed.Payload
	err := p.step(StageEncode, "", func() (outcome, error) {
		pl, err := p.registry().Encode(encoding, doc)
		if err != nil {
			return outcome{}, err
		}
		payload = pl
		return done(fmt.Sprintf("%s: %d records, %d bytes", pl.Encoding, pl.Records, len(pl.Body)),
			zap.String("encoding", pl.Encoding),
			zap.Int("records", pl.Records),
			zap.Int("bytes", len(pl.Body)),
		), nil
	})
	if err != nil {
		return FeedResult{}, err
	}

	fr := FeedResult{
		RunID:    p.id(),
		FeedType: payload.FeedType,
		Encoding: payload.Encoding,
		Records:  payload.Records,
	}

	err = p.step(StageSubmit, "", func() (outcome, error) {
		h, err := p.Marketplace.Submit(ctx, payload)
		if err != nil {
			return outcome{}, err
		}
		fr.DocumentID = h.DocumentID
		fr.FeedID = h.FeedID
		fr.Status = domain.StatusSubmitted
		return done(fmt.Sprintf("feed %s (document %s)", h.FeedID, h.DocumentID),
			zap.String("feed_type", string(payload.FeedType)),
			zap.String("document_id", h.DocumentID),
			zap.String("feed_id", h.FeedID),
		), nil
	})
	if err != nil {
		return fr, err
	}

	sub := state.Submission{
		RunID:      fr.RunID,
		BatchID:    batchID,
		FeedType:   fr.FeedType,
		Encoding:   fr.Encoding,
		DocumentID: fr.DocumentID,
		FeedID:     fr.FeedID,
		Status:     fr.Status,
		Titles:     titles,
		SKUs:       uniqueSKUs(doc),
	}
	if err := p.persist(ctx, sub, true); err != nil {
		return fr, err
	}

	if p.Poll.Attempts <= 0 {
		return fr, nil
	}

	if err := p.await(ctx, &fr); err != nil {
		return fr, err
	}

	sub.Status = fr.Status
	sub.ResultDocumentID = fr.ResultDocumentID
	sub.Report = fr.Report
	return fr, p.persist(ctx, sub, false)
}

func (p *Pipeline) persist(ctx context.Context, sub state.Submission, insert bool) error {
	if p.Store == nil {
		return nil
	}
	return p.step(StagePersist, "", func() (outcome, error) {
		var err error
		if insert {
			err = p.Store.InsertSubmission(ctx, sub)
		} else {
			err = p.Store.UpdateSubmission(ctx, sub)
		}
		if err != nil {
			return outcome{}, err
		}
		return done(sub.RunID, zap.String("run_id", sub.RunID), zap.String("status", string(sub.Status))), nil
	})
}

// await polls the feed and fetches its report once it is terminal.
func (p *Pipeline) await(ctx context.Context, fr *FeedResult) error {
	var st marketplace.FeedStatus
	err := p.step(StageWait, "", func() (outcome, error) {
		s, err := p.Marketplace.WaitForFeed(ctx, fr.FeedID, p.Poll)
		st = s
		if errors.Is(err, marketplace.ErrPollBudgetExhausted) {
			return done("still processing, retry later",
				zap.String("feed_id", fr.FeedID),
				zap.String("status", string(s.Status)),
			), nil
		}
		if err != nil {
			return outcome{}, err
		}
		return done(string(s.Status), zap.String("feed_id", fr.FeedID), zap.String("status", string(s.Status))), nil
	})
	if err != nil {
		return err
	}

	if st.Status != "" {
		fr.Status = st.Status
		fr.ResultDocumentID = st.ResultDocumentID
	}
	if !st.Status.Terminal() {
		return nil
	}

	return p.step(StageReport, "", func() (outcome, error) {
		text, ok, err := p.Marketplace.Report(ctx, st)
		if err != nil {
			return outcome{}, err
		}
		fr.Report = text
		return done(text, zap.String("feed_id", fr.FeedID), zap.Bool("available", ok)), nil
	})
}

func uniqueSKUs(doc feed.Document) []string {
	seen := make(map[string]struct{}, len(doc.Records))
	out := make([]string, 0, len(doc.Records))
	for _, r := range doc.Records {
		if _, ok := seen[r.SKU]; ok {
			continue
		}
		seen[r.SKU] = struct{}{}
		out = append(out, r.SKU)
	}
	return out
}
