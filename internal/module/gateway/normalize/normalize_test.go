package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

func respErr(status int, body string) error {
	return fmt.Errorf("submit task: %w", &transport.ResponseError{StatusCode: status, Status: http.StatusText(status), Body: []byte(body)})
}

func TestError_ResponseMapping(t *testing.T) {
	falExtractor := Chain(FalDetail, Fields("message", "error"))

	tests := []struct {
		name      string
		extractor MessageExtractor
		err       error
		status    int
		message   string
	}{
		{
			name:      "fal validation detail",
			extractor: falExtractor,
			err:       respErr(422, `{"detail":[{"loc":["body","prompt"],"msg":"field required","type":"value_error.missing"}]}`),
			status:    422,
			message:   "(value_error.missing): field required",
		},
		{
			name:      "fal detail without type",
			extractor: falExtractor,
			err:       respErr(400, `{"detail":[{"msg":"nope"}]}`),
			status:    400,
			message:   "(unknown): nope",
		},
		{
			name:      "message field",
			extractor: Default,
			err:       respErr(401, `{"message":"invalid api key"}`),
			status:    401,
			message:   "invalid api key",
		},
		{
			name:      "reason field",
			extractor: Default,
			err:       respErr(400, `{"reason":"bad size"}`),
			status:    400,
			message:   "bad size",
		},
		{
			name:      "status text fallback",
			extractor: Default,
			err:       respErr(503, `<html>oops</html>`),
			status:    503,
			message:   "Service Unavailable",
		},
		{
			name:      "nil extractor uses default",
			extractor: nil,
			err:       respErr(429, `{"error":"slow down"}`),
			status:    429,
			message:   "slow down",
		},
		{
			name:      "details suffix",
			extractor: WithDetails(Default),
			err:       respErr(400, `{"message":"bad","code":"E1"}`),
			status:    400,
			message:   `bad | {"message":"bad","code":"E1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Error(media.ProviderFal, tt.err, tt.extractor)

			var p *media.ProviderError
			require.ErrorAs(t, err, &p)
			assert.Equal(t, media.ProviderFal, p.Provider)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.message, p.Message)
		})
	}
}

func TestError_NoResponse(t *testing.T) {
	cause := errors.New("connection refused")
	err := Error(media.ProviderPPIO, &transport.NoResponseError{Err: cause}, nil)

	var n *media.NetworkError
	require.ErrorAs(t, err, &n)
	assert.Equal(t, media.ProviderPPIO, n.Provider)
	assert.ErrorIs(t, err, cause)
	assert.True(t, media.IsTransient(err))
}

func TestError_BreakerOpen(t *testing.T) {
	err := Error(media.ProviderKIE, gobreaker.ErrOpenState, nil)

	var n *media.NetworkError
	assert.ErrorAs(t, err, &n)
}

func TestError_PassThrough(t *testing.T) {
	validation := media.NewValidationError(media.ErrUnsupportedModel, "x")
	provider := &media.ProviderError{Provider: media.ProviderKIE, Status: 500}

	assert.Same(t, validation, Error(media.ProviderFal, validation, nil))
	assert.Same(t, provider, Error(media.ProviderFal, provider, nil))
	assert.ErrorIs(t, Error(media.ProviderFal, context.Canceled, nil), context.Canceled)
	assert.ErrorIs(t, Error(media.ProviderFal, fmt.Errorf("poll: %w", context.DeadlineExceeded), nil), context.DeadlineExceeded)
	assert.Nil(t, Error(media.ProviderFal, nil, nil))
}

func TestError_NoUploaderStaysValidation(t *testing.T) {
	staged := fmt.Errorf("upload reference 0: %w", media.NewValidationError(media.ErrNoUploader, "no configured uploader"))

	err := Error(media.ProviderModelScope, staged, nil)

	var u *media.UnknownError
	assert.False(t, errors.As(err, &u))
	assert.True(t, media.IsValidation(err))
	assert.ErrorIs(t, err, media.ErrNoUploader)
}

func TestError_RateLimitDeadline(t *testing.T) {
	err := Error(media.ProviderKIE, fmt.Errorf("kie rate limit: %w: would exceed", context.DeadlineExceeded), nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var u *media.UnknownError
	assert.False(t, errors.As(err, &u))
}

func TestError_Unknown(t *testing.T) {
	err := Error(media.ProviderModelScope, errors.New("weird"), nil)

	var u *media.UnknownError
	require.ErrorAs(t, err, &u)
	assert.Equal(t, "weird", u.Raw)
}

func TestError_RecoversFromExtractorPanic(t *testing.T) {
	boom := func([]byte) string { panic("bad extractor") }

	err := Error(media.ProviderFal, respErr(500, `{}`), boom)

	var u *media.UnknownError
	require.ErrorAs(t, err, &u)
	assert.Equal(t, "bad extractor", u.Raw)
}

func TestEnvelope(t *testing.T) {
	err := Envelope(media.ProviderKIE, 422, "", "create task failed")

	var p *media.ProviderError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, 422, p.Status)
	assert.Equal(t, "create task failed", p.Message)
}

func TestFields_InvalidJSON(t *testing.T) {
	assert.Empty(t, Fields("message")([]byte("not json")))
	assert.Empty(t, Fields("message")([]byte(`{"message":42}`)))
}
