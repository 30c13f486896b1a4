package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

// Runner reconciles submissions whose feeds were still processing when the
// lister finished with them.
type Runner struct {
	Store       state.Store
	Check       Checker
	PollEvery   time.Duration
	ClaimTTL    time.Duration
	MaxPerClaim int
	// MaxChecks marks a submission as error after this many consecutive
	// failed checks. Zero means no limit.
	MaxChecks int

	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

func (r Runner) Run(ctx context.Context) error {
	if r.Store == nil {
		return errors.New("store is nil")
	}
	if r.Check == nil {
		return errors.New("checker is nil")
	}
	if r.PollEvery <= 0 {
		r.PollEvery = 30 * time.Second
	}
	if r.ClaimTTL <= 0 {
		r.ClaimTTL = 2 * time.Minute
	}
	if r.MaxPerClaim <= 0 {
		r.MaxPerClaim = 10
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	ticker := time.NewTicker(r.PollEvery)
	defer ticker.Stop()

	// one immediate pass
	if err := r.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (r Runner) tick(ctx context.Context) error {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	claims, err := r.Store.ClaimPending(ctx, r.MaxPerClaim, r.ClaimTTL)
	if err != nil {
		return err
	}

	for _, c := range claims {
		jobCtx := WithRunID(ctx, c.RunID)
		fields := []zap.Field{zap.String("run_id", c.RunID), zap.String("feed_id", c.FeedID)}

		updated, err := r.Check.Check(jobCtx, c)
		if err != nil {
			updated = c
			updated.Error = err.Error()
			updated.Checks++
			updated.Failures++
			if r.MaxChecks > 0 && updated.Failures >= r.MaxChecks {
				updated.Status = domain.StatusError
			}
			log.Warn("feed check failed", append(fields, zap.Int("failures", updated.Failures), zap.Error(err))...)
		} else {
			updated.Error = ""
			updated.Checks++
			updated.Failures = 0
			log.Info("feed checked", append(fields, zap.String("status", string(updated.Status)))...)
		}

		if err := r.Store.UpdateSubmission(ctx, updated); err != nil {
			log.Error("store submission", append(fields, zap.Error(err))...)
			continue
		}
		r.Metrics.Reconciled(string(updated.Status))
	}

	return nil
}
