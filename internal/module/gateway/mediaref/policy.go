// Package mediaref holds the pure helpers request builders share: reference media conversion,
// aspect ratio inference and knob clamping.
package mediaref

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// Policy is how an adapter wants reference media delivered to its vendor.
type Policy int

const (
	// PolicyPassthrough sends references unchanged.
	PolicyPassthrough Policy = iota
	// PolicyDataURI sends inline media as data URIs; remote URLs pass through.
	PolicyDataURI
	// PolicyRawBase64 strips the data URI header; remote URLs pass through.
	PolicyRawBase64
	// PolicyUpload stages inline media with an uploader and sends the remote URL.
	PolicyUpload
)

func (p Policy) String() string {
	switch p {
	case PolicyDataURI:
		return "data_uri"
	case PolicyRawBase64:
		return "raw_base64"
	case PolicyUpload:
		return "upload"
	default:
		return "passthrough"
	}
}

const defaultMIME = "image/jpeg"

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref media.Reference) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// IsDataURI reports whether ref is a data URI.
func IsDataURI(ref media.Reference) bool {
	return strings.HasPrefix(ref, "data:")
}

// ToDataURI wraps raw base64 in a jpeg data URI. URLs and data URIs are returned unchanged.
func ToDataURI(ref media.Reference) string {
	if IsRemote(ref) || IsDataURI(ref) {
		return ref
	}
	return "data:" + defaultMIME + ";base64," + ref
}

// StripDataURI returns the base64 payload of a data URI. Other references are returned unchanged.
func StripDataURI(ref media.Reference) string {
	if !IsDataURI(ref) {
		return ref
	}
	if i := strings.IndexByte(ref, ','); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Convert applies a non-upload policy to one reference.
func Convert(p Policy, ref media.Reference) string {
	switch p {
	case PolicyDataURI:
		return ToDataURI(ref)
	case PolicyRawBase64:
		return StripDataURI(ref)
	default:
		return ref
	}
}

// ConvertAll applies a non-upload policy to every reference into a new slice.
func ConvertAll(p Policy, refs []media.Reference) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = Convert(p, ref)
	}
	return out
}

// Decode returns the bytes and mime type of an inline reference.
func Decode(ref media.Reference) ([]byte, string, error) {
	if IsRemote(ref) {
		return nil, "", fmt.Errorf("decode reference: %w: remote url", media.ErrInvalidInput)
	}
	mime := defaultMIME
	payload := ref
	if IsDataURI(ref) {
		header, body, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
		if !ok {
			return nil, "", fmt.Errorf("decode reference: %w: malformed data uri", media.ErrInvalidInput)
		}
		if m, _, _ := strings.Cut(header, ";"); m != "" {
			mime = m
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", fmt.Errorf("decode reference: %w: %v", media.ErrInvalidInput, err)
		}
	}
	return data, mime, nil
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"audio/mpeg":      ".mp3",
	"audio/wav":       ".wav",
}

// ExtensionFor maps a mime type to a file extension, defaulting to .jpg.
func ExtensionFor(mime string) string {
	if ext, ok := KnownExtension(mime); ok {
		return ext
	}
	return ".jpg"
}

// KnownExtension maps a media mime type to its usual extension.
func KnownExtension(mime string) (string, bool) {
	ext, ok := extensions[strings.ToLower(mime)]
	return ext, ok
}
