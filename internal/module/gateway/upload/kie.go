package upload

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/normalize"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

const (
	// KIEUploadBaseURL is the KIE file host.
	KIEUploadBaseURL = "https://kieai.redpandaai.co"

	kieStreamUploadPath = "api/file-stream-upload"
	kieUploadDir        = "mediagen-uploads"
)

// KIEStream uploads through the KIE multipart stream endpoint.
type KIEStream struct {
	client *transport.Client
	logger *zap.Logger
}

// NewKIEStream creates a KIE uploader. The client base URL is the KIE file host.
func NewKIEStream(client *transport.Client, logger *zap.Logger) *KIEStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KIEStream{client: client, logger: logger}
}

func (k *KIEStream) Name() string { return "kie" }

func (k *KIEStream) Available() bool { return k.client != nil && k.client.HasCredentials() }

func (k *KIEStream) Upload(ctx context.Context, ref media.Reference) (string, error) {
	if mediaref.IsRemote(ref) {
		return ref, nil
	}
	data, mime, err := mediaref.Decode(ref)
	if err != nil {
		return "", err
	}
	fileName := fmt.Sprintf("file_%d%s", time.Now().UnixMilli(), mediaref.ExtensionFor(mime))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	_ = w.WriteField("uploadPath", kieUploadDir)
	_ = w.WriteField("fileName", fileName)
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.client.URL(kieStreamUploadPath), &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := k.client.Do(ctx, req)
	if err != nil {
		return "", normalize.Error(media.ProviderKIE, fmt.Errorf("stream upload: %w", err), normalize.Fields("msg", "message"))
	}

	if code := gjson.GetBytes(resp.Body, "code"); code.Exists() && code.Int() != 200 {
		return "", normalize.Envelope(media.ProviderKIE, int(code.Int()), gjson.GetBytes(resp.Body, "msg").String(), "file upload failed")
	}
	fileURL := gjson.GetBytes(resp.Body, "data.fileUrl").String()
	if fileURL == "" {
		fileURL = gjson.GetBytes(resp.Body, "data.downloadUrl").String()
	}
	if fileURL == "" {
		return "", &media.UnknownError{Provider: media.ProviderKIE, Raw: string(resp.Body), Err: media.ErrNoUploader}
	}

	k.logger.Debug("Uploaded reference to KIE", zap.String("file_url", fileURL), zap.Int("bytes", len(data)))
	return fileURL, nil
}
