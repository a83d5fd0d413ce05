package mediaref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	// Registered decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// defaultFetchLimit bounds how much of a remote image is read to find its header.
const defaultFetchLimit = 4 << 20

// Inspector reads image dimensions from reference media.
type Inspector struct {
	client     *http.Client
	fetchLimit int64
	logger     *zap.Logger
}

// NewInspector creates an inspector. A nil client uses http.DefaultClient.
func NewInspector(client *http.Client, logger *zap.Logger) *Inspector {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{client: client, fetchLimit: defaultFetchLimit, logger: logger}
}

// Ratio returns width/height of the referenced image.
func (i *Inspector) Ratio(ctx context.Context, ref media.Reference) (float64, error) {
	var r io.Reader
	if IsRemote(ref) {
		body, err := i.fetch(ctx, ref)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(body)
	} else {
		data, _, err := Decode(ref)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(data)
	}

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Height == 0 {
		return 0, errors.New("image has zero height")
	}
	return float64(cfg.Width) / float64(cfg.Height), nil
}

// Preset infers the preset closest to the reference's shape, or fallback when it cannot be read.
func (i *Inspector) Preset(ctx context.Context, ref media.Reference, presets []string, fallback string) string {
	ratio, err := i.Ratio(ctx, ref)
	if err != nil {
		i.logger.Warn("Aspect ratio inference failed", zap.String("fallback", fallback), zap.Error(err))
		return fallback
	}
	return NearestPreset(ratio, presets)
}

// Format infers the reference's ratio and renders it with FormatRatio, or fallback on failure.
func (i *Inspector) Format(ctx context.Context, ref media.Reference, fallback string) string {
	ratio, err := i.Ratio(ctx, ref)
	if err != nil {
		i.logger.Warn("Aspect ratio inference failed", zap.String("fallback", fallback), zap.Error(err))
		return fallback
	}
	return FormatRatio(ratio)
}

func (i *Inspector) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, i.fetchLimit))
}
