// Package persist saves generated media to local disk.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

var _ media.Discarder = (*FilePersister)(nil)

// DefaultMaxBytes caps one downloaded file.
const DefaultMaxBytes = 512 << 20

// FilePersister downloads remote media into dir/<kind>/<uuid><ext>.
type FilePersister struct {
	dir      string
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewFilePersister creates a persister rooted at dir.
func NewFilePersister(dir string, client *http.Client, logger *zap.Logger) *FilePersister {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilePersister{dir: dir, client: client, maxBytes: DefaultMaxBytes, logger: logger}
}

// Persist implements media.Persister. Data URIs are decoded instead of downloaded.
func (p *FilePersister) Persist(ctx context.Context, remoteURL string, kind media.Kind) (media.Persisted, error) {
	if mediaref.IsDataURI(remoteURL) {
		data, mimeType, err := mediaref.Decode(remoteURL)
		if err != nil {
			return media.Persisted{}, fmt.Errorf("decode inline media: %w", err)
		}
		return p.write(bytes.NewReader(data), extension("", mimeType, kind), kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return media.Persisted{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return media.Persisted{}, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return media.Persisted{}, fmt.Errorf("download media: status %d", resp.StatusCode)
	}
	return p.write(resp.Body, extension(remoteURL, resp.Header.Get("Content-Type"), kind), kind)
}

// Discard implements media.Discarder. Only files under the persister's directory are removed.
func (p *FilePersister) Discard(_ context.Context, saved media.Persisted) error {
	if saved.LocalPath == "" {
		return nil
	}
	root, err := filepath.Abs(p.dir)
	if err != nil {
		return fmt.Errorf("resolve media dir: %w", err)
	}
	rel, err := filepath.Rel(root, saved.LocalPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s outside %s", saved.LocalPath, root)
	}
	if err := os.Remove(saved.LocalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

func (p *FilePersister) write(r io.Reader, ext string, kind media.Kind) (media.Persisted, error) {
	dir := filepath.Join(p.dir, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return media.Persisted{}, fmt.Errorf("create media dir: %w", err)
	}

	target := filepath.Join(dir, uuid.NewString()+ext)
	f, err := os.Create(target)
	if err != nil {
		return media.Persisted{}, fmt.Errorf("create media file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, p.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > p.maxBytes {
		err = fmt.Errorf("media exceeds %d bytes", p.maxBytes)
	}
	if err != nil {
		_ = os.Remove(target)
		return media.Persisted{}, fmt.Errorf("write media file: %w", err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	p.logger.Debug("Saved media locally", zap.String("kind", string(kind)), zap.String("path", abs), zap.Int64("bytes", n))

	return media.Persisted{
		LocalPath:  abs,
		DisplayURL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
	}, nil
}

func extension(remoteURL, contentType string, kind media.Kind) string {
	if u, err := url.Parse(remoteURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := mediaref.KnownExtension(mt); ok {
				return ext
			}
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
				return exts[0]
			}
		}
	}
	switch kind {
	case media.KindVideo:
		return ".mp4"
	case media.KindAudio:
		return ".mp3"
	default:
		return ".png"
	}
}
