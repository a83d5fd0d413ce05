// Package providerkit holds the plumbing shared by the media provider adapters.
package providerkit

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/poll"
	"github.com/uniedit/mediagen/internal/module/gateway/retry"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
	"github.com/uniedit/mediagen/internal/module/gateway/upload"
)

// Deps are the collaborators every adapter shares. All fields are optional.
type Deps struct {
	HTTPClient *http.Client
	Logger     *zap.Logger

	// Uploader stages inline references for providers that only accept URLs.
	Uploader media.Uploader
	// Persister saves finished media locally; nil keeps remote URLs.
	Persister media.Persister
	Inspector *mediaref.Inspector

	OnBreakerChange func(name string, open bool)
	OnPollAttempt   func(provider string)
}

// WithDefaults fills nil collaborators.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Inspector == nil {
		d.Inspector = mediaref.NewInspector(d.HTTPClient, d.Logger)
	}
	return d
}

// NewClient builds the provider transport. An empty cfg.BaseURL uses defaultBase.
func NewClient(provider media.ProviderID, cfg media.ClientConfig, defaultBase string, auth transport.Auth, deps Deps) *transport.Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBase
	}
	return transport.New(transport.Config{
		Name:            string(provider),
		BaseURL:         base,
		APIKey:          cfg.APIKey,
		Auth:            auth,
		HTTPClient:      deps.HTTPClient,
		RateLimit:       cfg.RateLimit,
		Burst:           cfg.Burst,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
		OnBreakerChange: deps.OnBreakerChange,
		Logger:          deps.Logger,
	})
}

// RequireKey fails when cfg carries no API key.
func RequireKey(provider media.ProviderID, cfg media.ClientConfig) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return media.NewValidationError(media.ErrMissingCredentials, "%s: api key is required", provider)
	}
	return nil
}

// PollRetryer is the transient retry budget applied to each status probe.
func PollRetryer(cfg media.ClientConfig, logger *zap.Logger) *retry.Retryer {
	policy := retry.DefaultPolicy()
	if cfg.TransientRetries > 0 {
		policy.MaxRetries = cfg.TransientRetries
	}
	return retry.New(policy, logger)
}

// PollOptions fills the poll settings every adapter shares.
func (d Deps) PollOptions(provider media.ProviderID, retryer *retry.Retryer, onProgress media.ProgressFunc) poll.Options {
	opts := poll.Options{
		Provider:   provider,
		Retryer:    retryer,
		OnProgress: onProgress,
		Logger:     d.Logger,
	}
	if d.OnPollAttempt != nil {
		opts.OnAttempt = func(int) { d.OnPollAttempt(string(provider)) }
	}
	return opts
}

// Unsupported is the error for a media kind the provider cannot produce.
func Unsupported(provider media.ProviderID, kind media.Kind) error {
	return media.NewValidationError(media.ErrUnsupportedCapability, "%s does not generate %s", provider, kind)
}

// Stager turns caller references into what the provider accepts.
type Stager func(refs []media.Reference) ([]string, error)

// StageWith binds policy and uploader to ctx.
func StageWith(ctx context.Context, policy mediaref.Policy, up media.Uploader) Stager {
	return func(refs []media.Reference) ([]string, error) {
		return upload.Normalize(ctx, policy, up, refs)
	}
}

// Shape infers aspect ratios from reference images.
type Shape interface {
	// Preset returns the preset closest to ref, or fallback.
	Preset(ref media.Reference, presets []string, fallback string) string
	// Format renders the ratio of ref, or fallback.
	Format(ref media.Reference, fallback string) string
}

type inspectorShape struct {
	ctx       context.Context
	inspector *mediaref.Inspector
}

// ShapeOf binds an inspector to ctx.
func ShapeOf(ctx context.Context, inspector *mediaref.Inspector) Shape {
	return inspectorShape{ctx: ctx, inspector: inspector}
}

func (s inspectorShape) Preset(ref media.Reference, presets []string, fallback string) string {
	return s.inspector.Preset(s.ctx, ref, presets, fallback)
}

func (s inspectorShape) Format(ref media.Reference, fallback string) string {
	return s.inspector.Format(s.ctx, ref, fallback)
}

// Input is what route builders receive: the caller's params plus hooks bound to the call.
// Builders validate before calling Stage, so rejected input never reaches the network.
type Input[P any] struct {
	Params P
	Stage  Stager
	Shape  Shape
}
