package providerkit

import (
	"strconv"
	"strings"

	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

// Or returns v, or def when v is blank.
func Or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// BoolOr dereferences p, or returns def.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// IntOr returns v, or def when v is not positive.
func IntOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// DurationString renders seconds, or def when unset.
func DurationString(seconds int, def string) string {
	if seconds <= 0 {
		return def
	}
	return strconv.Itoa(seconds)
}

// ExplicitRatio returns the aspect ratio unless it is blank or a sentinel.
func ExplicitRatio(v string) (string, bool) {
	if strings.TrimSpace(v) == "" || mediaref.IsSentinel(v) {
		return "", false
	}
	return v, true
}

// SetIf stores v under key when v is non-blank.
func SetIf(payload map[string]any, key, v string) {
	if strings.TrimSpace(v) != "" {
		payload[key] = v
	}
}

// Progress returns a pointer to p for TaskStatus.
func Progress(p int) *int {
	return &p
}
