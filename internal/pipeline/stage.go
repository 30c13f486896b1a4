package pipeline

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Stage string

const (
	StageUpload     Stage = "upload"
	StageStorefront Stage = "storefront"
	StageBuild      Stage = "build"
	StageBatch      Stage = "batch"
	StageEncode     Stage = "encode"
	StageSubmit     Stage = "submit"
	StagePersist    Stage = "persist"
	StageWait       Stage = "wait"
	StageReport     Stage = "report"
)

// ErrStage matches every error returned by Run and RunBatch.
var ErrStage = errors.New("pipeline stage failed")

// StageError names the stage that aborted a run.
type StageError struct {
	Stage Stage
	Title string
	Err   error
}

func (e *StageError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s %q: %v", e.Stage, e.Title, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool { return target == ErrStage }

// ProgressEvent is reported once per stage, before the next stage starts.
type ProgressEvent struct {
	Stage  Stage
	Title  string
	OK     bool
	Detail string
}

type outcome struct {
	detail string
	fields []zap.Field
}

func done(detail string, fields ...zap.Field) outcome {
	return outcome{detail: detail, fields: fields}
}

// step runs fn as stage s: it times it, records metrics, logs the result and
// emits one progress event.
func (p *Pipeline) step(s Stage, title string, fn func() (outcome, error)) error {
	log := p.logger().With(zap.String("stage", string(s)))
	if title != "" {
		log = log.With(zap.String("title", title))
	}

	start := time.Now()
	out, err := fn()
	p.Metrics.Stage(string(s), err, time.Since(start))

	if err != nil {
		log.Error("stage failed", zap.Error(err))
		p.emit(ProgressEvent{Stage: s, Title: title, OK: false, Detail: err.Error()})
		return &StageError{Stage: s, Title: title, Err: err}
	}

	log.Info("stage done", out.fields...)
	p.emit(ProgressEvent{Stage: s, Title: title, OK: true, Detail: out.detail})
	return nil
}

func (p *Pipeline) emit(ev ProgressEvent) {
	if p.Progress != nil {
		p.Progress(ev)
	}
}
