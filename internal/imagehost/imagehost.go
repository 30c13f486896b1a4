// Package imagehost uploads product images and returns a public URL for them.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotConfigured  = errors.New("image host not configured")
	ErrUnknownBackend = errors.New("unknown image host backend")
	ErrEmptyImage     = errors.New("image has no data")
)

// Uploader stores raw image bytes and returns a publicly fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type FactoryConfig struct {
	Backend string // imgbb | s3
	ImgBB   ImgBBConfig
	S3      S3Config
}

// New builds the uploader selected by cfg.Backend.
func New(ctx context.Context, cfg FactoryConfig, log *zap.Logger) (Uploader, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "imgbb":
		return NewImgBB(cfg.ImgBB, WithImgBBLogger(log))
	case "s3":
		return NewS3(ctx, cfg.S3, WithS3Logger(log))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
