package worker

import (
	"context"
	"testing"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

func TestRunner_DefaultsAndStopsOnContext(t *testing.T) {
	r := Runner{
		Store: state.NewMemoryStore(),
		Check: CheckFunc(func(_ context.Context, s state.Submission) (state.Submission, error) { return s, nil }),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	if err == nil {
		t.Fatalf("expected context error, got nil")
	}
}

func TestRunner_RequiresStoreAndChecker(t *testing.T) {
	if err := (Runner{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if err := (Runner{Store: state.NewMemoryStore()}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil checker")
	}
}
