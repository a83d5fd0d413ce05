package mediaref

import (
	"slices"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// ClampFloat bounds v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// OneOf returns v if it is allowed, else def.
func OneOf(v string, allowed []string, def string) string {
	if slices.Contains(allowed, v) {
		return v
	}
	return def
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// RequireCount checks that a mode received between lo and hi references. hi <= 0 means unbounded.
func RequireCount(mode string, n, lo, hi int) error {
	if n < lo {
		return media.NewValidationError(media.ErrReferenceCount, "mode %s needs at least %d reference(s), got %d", mode, lo, n)
	}
	if hi > 0 && n > hi {
		return media.NewValidationError(media.ErrReferenceCount, "mode %s accepts at most %d reference(s), got %d", mode, hi, n)
	}
	return nil
}
