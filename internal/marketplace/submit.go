package marketplace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/feed"
)

// SubmitState is how far a submission has progressed.
type SubmitState int

const (
	StatePending SubmitState = iota
	StateCreated
	StateUploaded
	StateRegistered
)

func (s SubmitState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateUploaded:
		return "uploaded"
	case StateRegistered:
		return "registered"
	default:
		return "pending"
	}
}

// Handle tracks one feed submission. It is scoped to a single pipeline run.
type Handle struct {
	State       SubmitState
	FeedType    domain.FeedType
	ContentType string
	DocumentID  string
	FeedID      string

	target DocumentTarget
}

// Submit runs the create -> upload -> register sequence for one payload. On
// error the returned handle shows the last state reached; a failed upload
// never registers a feed.
func (c *Client) Submit(ctx context.Context, p feed.Payload) (Handle, error) {
	h := Handle{FeedType: p.FeedType, ContentType: p.ContentType}

	for h.State != StateRegistered {
		if err := c.advance(ctx, &h, p.Body); err != nil {
			return h, fmt.Errorf("submit %s (%s): %w", p.FeedType, h.State, err)
		}
		c.log.Info("feed submission advanced",
			zap.String("state", h.State.String()),
			zap.String("feed_type", string(h.FeedType)),
			zap.String("document_id", h.DocumentID),
			zap.String("feed_id", h.FeedID),
		)
	}

	return h, nil
}

func (c *Client) advance(ctx context.Context, h *Handle, body []byte) error {
	switch h.State {
	case StatePending:
		t, err := c.CreateDocument(ctx, h.ContentType)
		if err != nil {
			return err
		}
		h.target = t
		h.DocumentID = t.DocumentID
		h.State = StateCreated

	case StateCreated:
		if err := c.Upload(ctx, h.target, h.ContentType, body); err != nil {
			return err
		}
		h.State = StateUploaded

	case StateUploaded:
		id, err := c.CreateFeed(ctx, h.FeedType, h.DocumentID)
		if err != nil {
			return err
		}
		h.FeedID = id
		h.State = StateRegistered

	default:
		return fmt.Errorf("no transition from %s", h.State)
	}
	return nil
}

// Poll bounds WaitForFeed.
type Poll struct {
	Attempts int
	Backoff  Backoff
}

// WaitForFeed polls until the feed reaches a terminal status. When the budget
// runs out first it returns the last status with ErrPollBudgetExhausted.
func (c *Client) WaitForFeed(ctx context.Context, feedID string, p Poll) (FeedStatus, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	bo := p.Backoff
	if bo == nil {
		bo = NoWait{}
	}

	var last FeedStatus
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := bo.Wait(ctx, i); err != nil {
				return last, err
			}
		}

		st, err := c.GetFeed(ctx, feedID)
		if err != nil {
			return last, err
		}
		last = st

		c.log.Debug("feed status",
			zap.String("feed_id", feedID),
			zap.String("status", string(st.Status)),
			zap.Int("attempt", i+1),
		)
		if st.Status.Terminal() {
			return st, nil
		}
	}

	return last, fmt.Errorf("%w: feed %s is %s after %d polls", ErrPollBudgetExhausted, feedID, last.Status, attempts)
}
