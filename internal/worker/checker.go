package worker

import (
	"context"
	"fmt"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/marketplace"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

// Checker refreshes one submission from the marketplace and returns the
// updated record.
type Checker interface {
	Check(ctx context.Context, s state.Submission) (state.Submission, error)
}

type CheckFunc func(ctx context.Context, s state.Submission) (state.Submission, error)

func (f CheckFunc) Check(ctx context.Context, s state.Submission) (state.Submission, error) {
	return f(ctx, s)
}

// FeedSource is the part of the marketplace client the reconciler needs.
type FeedSource interface {
	GetFeed(ctx context.Context, feedID string) (marketplace.FeedStatus, error)
	Report(ctx context.Context, st marketplace.FeedStatus) (string, bool, error)
}

// FeedChecker polls a feed once and, when it is done, stores its report.
type FeedChecker struct {
	Feeds FeedSource
}

func (c FeedChecker) Check(ctx context.Context, s state.Submission) (state.Submission, error) {
	st, err := c.Feeds.GetFeed(ctx, s.FeedID)
	if err != nil {
		return s, fmt.Errorf("get feed %s: %w", s.FeedID, err)
	}

	s.Status = st.Status
	s.ResultDocumentID = st.ResultDocumentID

	if !st.Status.Terminal() {
		return s, nil
	}

	text, _, err := c.Feeds.Report(ctx, st)
	if err != nil {
		return s, fmt.Errorf("report %s: %w", s.FeedID, err)
	}
	s.Report = text
	return s, nil
}
