package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/feed"
)

// RunBatch lists several images in one combined listings feed, followed by one
// inventory feed covering every child SKU. Images are uploaded and published
// one at a time; any failure aborts the whole batch before anything is
// submitted to the marketplace.
func (p *Pipeline) RunBatch(ctx context.Context, imgs []Image) (Result, error) {
	if err := p.check(); err != nil {
		return Result{}, err
	}

	res := Result{BatchID: p.id()}
	if len(imgs) == 0 {
		return res, &StageError{Stage: StageBatch, Err: fmt.Errorf("%w: no images", feed.ErrInvalidInput)}
	}

	if err := p.checkPrefixes(imgs); err != nil {
		return res, err
	}

	blocks := make([]feed.Document, 0, len(imgs))
	for _, img := range imgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		prod, doc, err := p.prepare(ctx, img)
		if err != nil {
			return res, err
		}
		res.Products = append(res.Products, prod)
		blocks = append(blocks, doc)
	}

	var combined feed.Document
	err := p.step(StageBatch, "", func() (outcome, error) {
		d, err := feed.Concat(blocks...)
		if err != nil {
			return outcome{}, err
		}
		combined = d
		return done(fmt.Sprintf("%d products, %d records", len(blocks), d.Len()),
			zap.String("batch_id", res.BatchID),
			zap.Int("products", len(blocks)),
			zap.Int("records", d.Len()),
		), nil
	})
	if err != nil {
		return res, err
	}

	return p.submitAll(ctx, res, combined, true)
}

// checkPrefixes rejects a batch in which two images would share a SKU prefix.
// It runs before anything is uploaded.
func (p *Pipeline) checkPrefixes(imgs []Image) error {
	seen := make(map[string]string, len(imgs))
	for _, img := range imgs {
		title := img.title()
		if title == "" {
			continue
		}
		token := ""
		if p.ContentTokens {
			token = catalog.ContentToken(img.Data)
		}
		prefix := catalog.Prefix(title, token)

		prev, dup := seen[prefix]
		if !dup {
			seen[prefix] = img.Name
			continue
		}
		return p.step(StageBatch, title, func() (outcome, error) {
			return outcome{}, fmt.Errorf("%w: %q and %q share sku prefix %s", feed.ErrInvalidDocument, prev, img.Name, prefix)
		})
	}
	return nil
}
