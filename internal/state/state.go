package state

import (
	"context"
	"errors"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

var (
	ErrNotFound  = errors.New("submission not found")
	ErrDuplicate = errors.New("submission already exists")
)

// Submission is one feed handed to the marketplace. A batch run produces
// several (listings, then inventory) sharing a BatchID.
type Submission struct {
	RunID    string          `json:"run_id"`
	BatchID  string          `json:"batch_id"`
	FeedType domain.FeedType `json:"feed_type"`
	Encoding string          `json:"encoding"`

	DocumentID       string                  `json:"document_id,omitempty"`
	FeedID           string                  `json:"feed_id,omitempty"`
	Status           domain.ProcessingStatus `json:"status"`
	ResultDocumentID string                  `json:"result_document_id,omitempty"`
	Report           string                  `json:"report,omitempty"`
	Error            string                  `json:"error,omitempty"`

	Titles []string `json:"titles"`
	SKUs   []string `json:"skus"`

	// Checks counts reconciler passes and Failures the consecutive failed
	// ones. LeaseUntil guards a claimed row.
	Checks     int       `json:"checks"`
	Failures   int       `json:"failures"`
	LeaseUntil time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pending reports whether the reconciler still has work to do on s.
func (s Submission) Pending() bool {
	return s.FeedID != "" && !s.Status.Terminal()
}

type Store interface {
	InsertSubmission(ctx context.Context, s Submission) error
	// UpdateSubmission replaces the mutable fields and releases any lease.
	UpdateSubmission(ctx context.Context, s Submission) error
	GetSubmission(ctx context.Context, runID string) (Submission, bool, error)
	// ListSubmissions returns newest first.
	ListSubmissions(ctx context.Context, limit int) ([]Submission, error)
	// ClaimPending leases up to limit pending submissions, oldest first.
	// Leased rows are not returned again until the lease expires or the row
	// is updated.
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]Submission, error)
}
