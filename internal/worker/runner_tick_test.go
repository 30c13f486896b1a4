package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

func insertPending(t *testing.T, st state.Store, runID string) {
	t.Helper()

	err := st.InsertSubmission(context.Background(), state.Submission{
		RunID:     runID,
		FeedType:  domain.FeedTypeFlatFileListings,
		FeedID:    "feed-" + runID,
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now().UTC().Add(-1 * time.Minute),
	})
	if err != nil {
		t.Fatalf("InsertSubmission: %v", err)
	}
}

func TestRunner_Tick_ChecksAndStoresDone_RunIDInContext(t *testing.T) {
	st := state.NewMemoryStore()
	runID := "run_test_done_1"
	insertPending(t, st, runID)

	calls := 0
	r := Runner{
		Store:       st,
		MaxPerClaim: 10,
		Metrics:     metrics.New(),
		Check: CheckFunc(func(ctx context.Context, s state.Submission) (state.Submission, error) {
			calls++

			if s.RunID != runID {
				t.Fatalf("expected run_id=%q got %q", runID, s.RunID)
			}
			if got := RunID(ctx); got != runID {
				t.Fatalf("expected ctx run_id=%q got %q", runID, got)
			}

			s.Status = domain.StatusDone
			s.Report = "Number of records processed: 28"
			return s, nil
		}),
	}

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected Check called once, got %d", calls)
	}

	rec, ok, err := st.GetSubmission(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if !ok {
		t.Fatalf("expected submission to exist")
	}
	if rec.Status != domain.StatusDone {
		t.Fatalf("expected status=done, got %q", rec.Status)
	}
	if rec.Checks != 1 {
		t.Fatalf("expected checks=1, got %d", rec.Checks)
	}
	if !rec.LeaseUntil.IsZero() {
		t.Fatalf("expected lease to be released")
	}
}

func TestRunner_Tick_FailureRecordsErrorAndGivesUp(t *testing.T) {
	st := state.NewMemoryStore()
	runID := "run_test_fail_1"
	insertPending(t, st, runID)

	r := Runner{
		Store:       st,
		MaxPerClaim: 10,
		MaxChecks:   2,
		Check: CheckFunc(func(ctx context.Context, s state.Submission) (state.Submission, error) {
			return s, errors.New("boom")
		}),
	}

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(1): %v", err)
	}

	rec, _, _ := st.GetSubmission(context.Background(), runID)
	if rec.Status != domain.StatusSubmitted {
		t.Fatalf("expected status to stay submitted after one failure, got %q", rec.Status)
	}
	if rec.Error != "boom" {
		t.Fatalf("expected error recorded, got %q", rec.Error)
	}

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(2): %v", err)
	}

	rec, _, _ = st.GetSubmission(context.Background(), runID)
	if rec.Status != domain.StatusError {
		t.Fatalf("expected status=error after max checks, got %q", rec.Status)
	}
	if rec.Checks != 2 || rec.Failures != 2 {
		t.Fatalf("expected checks=2 failures=2, got checks=%d failures=%d", rec.Checks, rec.Failures)
	}
}

func TestRunner_Tick_SlowFeedSurvivesTransientFailure(t *testing.T) {
	st := state.NewMemoryStore()
	runID := "run_test_slow_1"
	insertPending(t, st, runID)

	fail := false
	r := Runner{
		Store:       st,
		MaxPerClaim: 10,
		MaxChecks:   3,
		Check: CheckFunc(func(ctx context.Context, s state.Submission) (state.Submission, error) {
			if fail {
				return s, errors.New("sp-api get-feed: status 503")
			}
			s.Status = domain.StatusInProgress
			return s, nil
		}),
	}

	for i := 0; i < 2; i++ {
		if err := r.tick(context.Background()); err != nil {
			t.Fatalf("tick(%d): %v", i+1, err)
		}
	}

	fail = true
	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(3): %v", err)
	}

	rec, _, _ := st.GetSubmission(context.Background(), runID)
	if rec.Status != domain.StatusInProgress {
		t.Fatalf("expected feed to stay in progress after one failure, got %q", rec.Status)
	}
	if rec.Checks != 3 || rec.Failures != 1 {
		t.Fatalf("expected checks=3 failures=1, got checks=%d failures=%d", rec.Checks, rec.Failures)
	}

	fail = false
	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(4): %v", err)
	}
	rec, _, _ = st.GetSubmission(context.Background(), runID)
	if rec.Failures != 0 || rec.Error != "" {
		t.Fatalf("expected success to reset failures, got failures=%d error=%q", rec.Failures, rec.Error)
	}
}

func TestRunner_Tick_DoesNotRecheckTerminal(t *testing.T) {
	st := state.NewMemoryStore()
	insertPending(t, st, "run_test_no_recheck_1")

	calls := 0
	r := Runner{
		Store:       st,
		MaxPerClaim: 10,
		Check: CheckFunc(func(ctx context.Context, s state.Submission) (state.Submission, error) {
			calls++
			s.Status = domain.StatusCancelled
			return s, nil
		}),
	}

	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(1): %v", err)
	}
	if err := r.tick(context.Background()); err != nil {
		t.Fatalf("tick(2): %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected Check called once total, got %d", calls)
	}
}
