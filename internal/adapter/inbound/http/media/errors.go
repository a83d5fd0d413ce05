package mediahttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniedit/mediagen/internal/domain/media"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Provider  string `json:"provider,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handleError maps the gateway error taxonomy to an HTTP response.
func handleError(c *gin.Context, err error) {
	status, body := classify(err)
	c.JSON(status, errorResponse{Error: body})
}

func classify(err error) (int, errorBody) {
	body := errorBody{Message: err.Error(), Retryable: media.IsTransient(err)}

	var (
		providerErr *media.ProviderError
		networkErr  *media.NetworkError
		unknownErr  *media.UnknownError
	)

	switch {
	case errors.Is(err, media.ErrUnknownProvider):
		body.Code = "unknown_provider"
		return http.StatusNotFound, body

	case errors.Is(err, media.ErrTaskNotFound):
		body.Code = "task_not_found"
		return http.StatusNotFound, body

	case errors.Is(err, media.ErrUnsupportedModel):
		body.Code = "unsupported_model"
		return http.StatusUnprocessableEntity, body

	case errors.Is(err, media.ErrUnsupportedCapability):
		body.Code = "unsupported_capability"
		return http.StatusUnprocessableEntity, body

	case errors.Is(err, media.ErrMissingCredentials):
		body.Code = "provider_not_configured"
		return http.StatusServiceUnavailable, body

	case errors.Is(err, media.ErrNoUploader):
		body.Code = "no_uploader"
		return http.StatusServiceUnavailable, body

	case media.IsValidation(err):
		body.Code = "invalid_input"
		return http.StatusBadRequest, body

	case errors.Is(err, context.DeadlineExceeded):
		body.Code = "timeout"
		return http.StatusGatewayTimeout, body

	case errors.Is(err, context.Canceled):
		body.Code = "canceled"
		return 499, body

	case errors.As(err, &providerErr):
		body.Provider = string(providerErr.Provider)
		switch {
		case errors.Is(err, media.ErrTaskFailed):
			body.Code = "task_failed"
			return http.StatusUnprocessableEntity, body
		case providerErr.Status == http.StatusTooManyRequests:
			body.Code = "rate_limited"
			return http.StatusTooManyRequests, body
		default:
			body.Code = "provider_error"
			return http.StatusBadGateway, body
		}

	case errors.As(err, &networkErr):
		body.Provider = string(networkErr.Provider)
		body.Code = "provider_unreachable"
		body.Retryable = true
		return http.StatusBadGateway, body

	case errors.As(err, &unknownErr):
		body.Provider = string(unknownErr.Provider)
		body.Code = "unexpected_response"
		return http.StatusBadGateway, body

	default:
		body.Code = "internal_error"
		body.Message = "internal server error"
		return http.StatusInternalServerError, body
	}
}
