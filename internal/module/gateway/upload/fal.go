package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/normalize"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

// FalStorageBaseURL is the fal REST host serving storage uploads.
const FalStorageBaseURL = "https://rest.alpha.fal.ai"

// FalStorage uploads to the fal CDN in two steps: initiate, then PUT to the signed URL.
type FalStorage struct {
	client *transport.Client
	logger *zap.Logger
}

// NewFalStorage creates a fal CDN uploader. The client must use Key auth.
func NewFalStorage(client *transport.Client, logger *zap.Logger) *FalStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FalStorage{client: client, logger: logger}
}

func (f *FalStorage) Name() string { return "fal" }

func (f *FalStorage) Available() bool { return f.client != nil && f.client.HasCredentials() }

func (f *FalStorage) Upload(ctx context.Context, ref media.Reference) (string, error) {
	if mediaref.IsRemote(ref) {
		return ref, nil
	}
	data, mime, err := mediaref.Decode(ref)
	if err != nil {
		return "", err
	}
	fileName := fmt.Sprintf("file_%d%s", time.Now().UnixMilli(), mediaref.ExtensionFor(mime))

	query := url.Values{"storage_type": {"fal-cdn-v3"}}
	body, err := f.client.PostJSON(ctx, "storage/upload/initiate?"+query.Encode(), map[string]any{
		"content_type": mime,
		"file_name":    fileName,
	})
	if err != nil {
		return "", normalize.Error(media.ProviderFal, fmt.Errorf("initiate upload: %w", err), normalize.Default)
	}
	uploadURL := gjson.GetBytes(body, "upload_url").String()
	fileURL := gjson.GetBytes(body, "file_url").String()
	if uploadURL == "" || fileURL == "" {
		return "", &media.UnknownError{Provider: media.ProviderFal, Raw: string(body), Err: media.ErrNoUploader}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mime)
	if _, err := f.client.Do(ctx, req); err != nil {
		return "", normalize.Error(media.ProviderFal, fmt.Errorf("put object: %w", err), normalize.Default)
	}

	f.logger.Debug("Uploaded reference to fal storage", zap.String("file_url", fileURL), zap.Int("bytes", len(data)))
	return fileURL, nil
}
