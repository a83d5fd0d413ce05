// Package normalize maps transport and vendor failures onto the media error taxonomy.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

// MessageExtractor pulls a human readable message out of an error body. Empty means not found.
type MessageExtractor func(body []byte) string

// Fields returns the first non-empty string among the gjson paths.
func Fields(paths ...string) MessageExtractor {
	return func(body []byte) string {
		if !gjson.ValidBytes(body) {
			return ""
		}
		for _, p := range paths {
			if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
		return ""
	}
}

// FalDetail reads validation arrays of the form {"detail":[{"msg":..,"type":..}]}.
func FalDetail(body []byte) string {
	detail := gjson.GetBytes(body, "detail")
	if !detail.IsArray() {
		return ""
	}
	first := detail.Get("0")
	if !first.Exists() {
		return ""
	}
	msg := first.Get("msg").String()
	if msg == "" {
		msg = "Unknown error"
	}
	typ := first.Get("type").String()
	if typ == "" {
		typ = "unknown"
	}
	return fmt.Sprintf("(%s): %s", typ, msg)
}

// Chain tries extractors in order.
func Chain(extractors ...MessageExtractor) MessageExtractor {
	return func(body []byte) string {
		for _, ex := range extractors {
			if ex == nil {
				continue
			}
			if msg := ex(body); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// WithDetails appends the raw body to whatever ex finds.
func WithDetails(ex MessageExtractor) MessageExtractor {
	return func(body []byte) string {
		msg := ex(body)
		raw := strings.TrimSpace(string(body))
		if raw == "" || msg == "" {
			return msg
		}
		return msg + " | " + raw
	}
}

// Default reads message, error and reason fields.
var Default = Fields("message", "error", "reason")

// Error normalizes err for provider. Taxonomy errors and context errors pass through unchanged.
func Error(provider media.ProviderID, err error, extractor MessageExtractor) (out error) {
	if err == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = &media.UnknownError{Provider: provider, Raw: fmt.Sprint(r), Err: err}
		}
	}()

	if isTaxonomy(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var respErr *transport.ResponseError
	if errors.As(err, &respErr) {
		return &media.ProviderError{
			Provider: provider,
			Status:   respErr.StatusCode,
			Message:  responseMessage(respErr, extractor),
		}
	}

	var noResp *transport.NoResponseError
	if errors.As(err, &noResp) {
		return &media.NetworkError{Provider: provider, Err: noResp.Err}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &media.NetworkError{Provider: provider, Err: err}
	}

	return &media.UnknownError{Provider: provider, Raw: err.Error(), Err: err}
}

// Envelope builds the error for a 2xx response whose body carries a failure code.
func Envelope(provider media.ProviderID, code int, msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return &media.ProviderError{Provider: provider, Status: code, Message: msg}
}

func responseMessage(respErr *transport.ResponseError, extractor MessageExtractor) string {
	if extractor == nil {
		extractor = Default
	}
	if msg := extractor(respErr.Body); msg != "" {
		return msg
	}
	if text := http.StatusText(respErr.StatusCode); text != "" {
		return text
	}
	if respErr.Status != "" {
		return respErr.Status
	}
	return "Bad Request"
}

func isTaxonomy(err error) bool {
	var (
		v *media.ValidationError
		p *media.ProviderError
		n *media.NetworkError
		u *media.UnknownError
	)
	return errors.As(err, &v) || errors.As(err, &p) || errors.As(err, &n) || errors.As(err, &u)
}
