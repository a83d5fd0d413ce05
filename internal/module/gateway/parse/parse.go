// Package parse extracts canonical media outputs from vendor response bodies.
package parse

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

// InlineFields are the fields vendors use for base64 media, on an output item or at the top level.
var InlineFields = []string{"b64_json", "base64_image", "base64", "image_base64", "base64_data", "audio_base64"}

// ErrNoOutput is returned when a completed response carries no recognizable media.
var ErrNoOutput = errors.New("response carried no media output")

// NoOutput reports a response without media as an unknown error that keeps the body.
func NoOutput(provider media.ProviderID, body []byte) error {
	raw := string(body)
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return &media.UnknownError{Provider: provider, Raw: raw, Err: ErrNoOutput}
}

// FirstURLs probes the paths in order and returns the URLs of the first one that yields any.
// A path may hold a URL string, an object with a url field, or an array of either. Strings that
// are not links or data URIs are skipped.
func FirstURLs(body []byte, paths ...string) []string {
	if !gjson.ValidBytes(body) {
		return nil
	}
	for _, p := range paths {
		if urls := urlsOf(gjson.GetBytes(body, p)); len(urls) > 0 {
			return urls
		}
	}
	return nil
}

// FirstMedia probes the URL shapes first, then inline base64 under the same paths and the top-level
// InlineFields. Inline blobs come back as data URIs typed by kind.
func FirstMedia(body []byte, kind media.Kind, paths ...string) []string {
	if urls := FirstURLs(body, paths...); len(urls) > 0 {
		return urls
	}
	if !gjson.ValidBytes(body) {
		return nil
	}
	for _, p := range append(append([]string(nil), paths...), InlineFields...) {
		if blobs := inlineOf(gjson.GetBytes(body, p)); len(blobs) > 0 {
			out := make([]string, len(blobs))
			for i, b := range blobs {
				out[i] = "data:" + sniffMIME(b, kind) + ";base64," + b
			}
			return out
		}
	}
	return nil
}

// Base64Of joins the payloads of the data URIs among urls. Remote URLs contribute nothing.
func Base64Of(urls []string) string {
	var blobs []string
	for _, u := range urls {
		if mediaref.IsDataURI(u) {
			blobs = append(blobs, mediaref.StripDataURI(u))
		}
	}
	return Join(blobs)
}

func inlineOf(v gjson.Result) []string {
	switch {
	case v.Type == gjson.String:
		if v.Str != "" {
			return []string{mediaref.StripDataURI(v.Str)}
		}
	case v.IsObject():
		for _, f := range InlineFields {
			if b := v.Get(f).String(); b != "" {
				return []string{mediaref.StripDataURI(b)}
			}
		}
	case v.IsArray():
		var out []string
		for _, item := range v.Array() {
			out = append(out, inlineOf(item)...)
		}
		return out
	}
	return nil
}

func sniffMIME(b64 string, kind media.Kind) string {
	switch {
	case strings.HasPrefix(b64, "iVBOR"):
		return "image/png"
	case strings.HasPrefix(b64, "/9j/"):
		return "image/jpeg"
	case strings.HasPrefix(b64, "R0lGOD"):
		return "image/gif"
	case strings.HasPrefix(b64, "UklGR"):
		if kind == media.KindAudio {
			return "audio/wav"
		}
		return "image/webp"
	case strings.HasPrefix(b64, "SUQz"), strings.HasPrefix(b64, "//u"), strings.HasPrefix(b64, "//s"):
		return "audio/mpeg"
	}
	switch kind {
	case media.KindAudio:
		return "audio/mpeg"
	case media.KindVideo:
		return "video/mp4"
	default:
		return "image/png"
	}
}

// FirstString returns the first non-empty string among the paths.
func FirstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// Embedded parses a JSON document carried as a string field, as KIE does with resultJson.
func Embedded(body []byte, path string) []byte {
	v := gjson.GetBytes(body, path)
	switch {
	case v.Type == gjson.String && gjson.Valid(v.Str):
		return []byte(v.Str)
	case v.IsObject() || v.IsArray():
		return []byte(v.Raw)
	default:
		return nil
	}
}

func urlsOf(v gjson.Result) []string {
	switch {
	case v.Type == gjson.String:
		if isLink(v.Str) {
			return []string{v.Str}
		}
	case v.IsObject():
		if u := v.Get("url").String(); isLink(u) {
			return []string{u}
		}
	case v.IsArray():
		var out []string
		for _, item := range v.Array() {
			out = append(out, urlsOf(item)...)
		}
		return out
	}
	return nil
}

func isLink(s string) bool {
	return mediaref.IsRemote(s) || mediaref.IsDataURI(s) || strings.Contains(s, "://")
}

// Join flattens urls with the media delimiter.
func Join(urls []string) string {
	return media.JoinURLs(urls)
}

// Split undoes Join.
func Split(joined string) []string {
	return media.SplitURLs(joined)
}

// Saved is the outcome of PersistAll.
type Saved struct {
	URL      string
	FilePath string
}

// PersistAll saves every url locally. Any failure keeps the remote URLs and is only logged;
// files already written for the batch are discarded when the persister supports it.
func PersistAll(ctx context.Context, p media.Persister, urls []string, kind media.Kind, logger *zap.Logger) Saved {
	remote := Saved{URL: Join(urls)}
	if p == nil || len(urls) == 0 {
		return remote
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	saved := make([]media.Persisted, 0, len(urls))
	for _, u := range urls {
		s, err := p.Persist(ctx, u, kind)
		if err != nil {
			logger.Warn("Local save failed, keeping remote URL",
				zap.String("kind", string(kind)),
				zap.String("url", logURL(u)),
				zap.Error(err),
			)
			discard(ctx, p, saved, logger)
			return remote
		}
		saved = append(saved, s)
	}

	display := make([]string, len(saved))
	paths := make([]string, len(saved))
	for i, s := range saved {
		display[i] = s.DisplayURL
		paths[i] = s.LocalPath
	}
	return Saved{URL: Join(display), FilePath: Join(paths)}
}

func discard(ctx context.Context, p media.Persister, saved []media.Persisted, logger *zap.Logger) {
	d, ok := p.(media.Discarder)
	if !ok {
		return
	}
	for _, s := range saved {
		if err := d.Discard(ctx, s); err != nil {
			logger.Warn("Failed to discard partial save", zap.String("path", s.LocalPath), zap.Error(err))
		}
	}
}

func logURL(u string) string {
	if mediaref.IsDataURI(u) && len(u) > 64 {
		return u[:64] + "..."
	}
	return u
}
