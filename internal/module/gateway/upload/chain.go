// Package upload stages inline reference media on a remote store before submission.
package upload

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

// Recorder receives upload outcomes.
type Recorder interface {
	RecordUpload(uploader string, success bool)
}

// Chain tries a primary uploader then ordered fallbacks. The first available one that succeeds wins.
type Chain struct {
	uploaders []media.Uploader
	recorder  Recorder
	logger    *zap.Logger
}

// NewChain creates a chain. Nil uploaders are skipped.
func NewChain(logger *zap.Logger, recorder Recorder, primary media.Uploader, fallbacks ...media.Uploader) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{recorder: recorder, logger: logger.With(zap.String("component", "upload_chain"))}
	for _, u := range append([]media.Uploader{primary}, fallbacks...) {
		if u != nil {
			c.uploaders = append(c.uploaders, u)
		}
	}
	return c
}

// Name implements media.Uploader.
func (c *Chain) Name() string { return "chain" }

// Available reports whether any uploader in the chain is available.
func (c *Chain) Available() bool {
	for _, u := range c.uploaders {
		if u.Available() {
			return true
		}
	}
	return false
}

// Upload stages ref. Remote URLs are returned unchanged.
func (c *Chain) Upload(ctx context.Context, ref media.Reference) (string, error) {
	if mediaref.IsRemote(ref) {
		return ref, nil
	}

	var errs []error
	for _, u := range c.uploaders {
		if !u.Available() {
			c.logger.Debug("Uploader not configured, skipping", zap.String("uploader", u.Name()))
			continue
		}
		url, err := u.Upload(ctx, ref)
		c.record(u.Name(), err == nil)
		if err == nil {
			return url, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.logger.Warn("Upload failed, trying next uploader", zap.String("uploader", u.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", u.Name(), err))
	}

	if len(errs) == 0 {
		return "", media.NewValidationError(media.ErrNoUploader, "no configured uploader")
	}
	return "", fmt.Errorf("all uploaders failed: %w", errors.Join(errs...))
}

func (c *Chain) record(name string, ok bool) {
	if c.recorder != nil {
		c.recorder.RecordUpload(name, ok)
	}
}
