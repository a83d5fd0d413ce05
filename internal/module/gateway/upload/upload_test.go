package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

type fakeUploader struct {
	name      string
	available bool
	err       error
	calls     atomic.Int32
}

func (f *fakeUploader) Name() string    { return f.name }
func (f *fakeUploader) Available() bool { return f.available }
func (f *fakeUploader) Upload(ctx context.Context, ref media.Reference) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "https://" + f.name + ".cdn/" + mediaref.StripDataURI(ref), nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *fakeRecorder) RecordUpload(uploader string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if !success {
		status = "fail"
	}
	r.events = append(r.events, uploader+":"+status)
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &fakeUploader{name: "fal", available: true}
	fallback := &fakeUploader{name: "kie", available: true}
	rec := &fakeRecorder{}

	url, err := NewChain(nil, rec, primary, fallback).Upload(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, "https://fal.cdn/abc", url)
	assert.Equal(t, int32(0), fallback.calls.Load())
	assert.Equal(t, []string{"fal:ok"}, rec.events)
}

func TestChain_FallsBack(t *testing.T) {
	primary := &fakeUploader{name: "fal", available: true, err: errors.New("boom")}
	unavailable := &fakeUploader{name: "s3", available: false}
	fallback := &fakeUploader{name: "kie", available: true}
	rec := &fakeRecorder{}

	url, err := NewChain(nil, rec, primary, unavailable, fallback).Upload(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, "https://kie.cdn/abc", url)
	assert.Equal(t, int32(0), unavailable.calls.Load())
	assert.Equal(t, []string{"fal:fail", "kie:ok"}, rec.events)
}

func TestChain_AllFail(t *testing.T) {
	a := &fakeUploader{name: "fal", available: true, err: errors.New("a down")}
	b := &fakeUploader{name: "kie", available: true, err: errors.New("b down")}

	_, err := NewChain(nil, nil, a, b).Upload(context.Background(), "abc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestChain_NoneAvailable(t *testing.T) {
	c := NewChain(nil, nil, nil, &fakeUploader{name: "kie"})

	assert.False(t, c.Available())
	_, err := c.Upload(context.Background(), "abc")
	assert.ErrorIs(t, err, media.ErrNoUploader)
	assert.True(t, media.IsValidation(err))
}

func TestChain_RemotePassesThrough(t *testing.T) {
	primary := &fakeUploader{name: "fal", available: true}

	url, err := NewChain(nil, nil, primary).Upload(context.Background(), "https://x/y.png")

	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", url)
	assert.Equal(t, int32(0), primary.calls.Load())
}

func TestAll_KeepsOrder(t *testing.T) {
	up := &fakeUploader{name: "fal", available: true}
	refs := []string{"one", "https://keep/me.png", "data:image/png;base64,three"}

	out, err := All(context.Background(), up, refs)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://fal.cdn/one", "https://keep/me.png", "https://fal.cdn/three"}, out)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestAll_OneFailureFailsBatch(t *testing.T) {
	up := &fakeUploader{name: "fal", available: true, err: errors.New("quota")}

	_, err := All(context.Background(), up, []string{"a", "b"})

	assert.ErrorContains(t, err, "quota")
}

func TestNormalize(t *testing.T) {
	refs := []string{"abc"}

	out, err := Normalize(context.Background(), mediaref.PolicyDataURI, nil, refs)
	require.NoError(t, err)
	assert.Equal(t, []string{"data:image/jpeg;base64,abc"}, out)

	out, err = Normalize(context.Background(), mediaref.PolicyUpload, nil, []string{"https://a/b.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/b.png"}, out)

	_, err = Normalize(context.Background(), mediaref.PolicyUpload, nil, refs)
	assert.ErrorIs(t, err, media.ErrNoUploader)
	assert.True(t, media.IsValidation(err))
	assert.ErrorContains(t, err, "1 local references")

	out, err = Normalize(context.Background(), mediaref.PolicyUpload, &fakeUploader{name: "kie", available: true}, refs)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://kie.cdn/abc"}, out)

	out, err = Normalize(context.Background(), mediaref.PolicyRawBase64, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFalStorage_Upload(t *testing.T) {
	var putBody, putType string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/upload/initiate":
			assert.Equal(t, "fal-cdn-v3", r.URL.Query().Get("storage_type"))
			assert.Equal(t, "Key fk", r.Header.Get("Authorization"))
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "image/png", req["content_type"])
			assert.True(t, strings.HasSuffix(req["file_name"], ".png"))
			_, _ = io.WriteString(w, `{"upload_url":"`+server.URL+`/signed/put","file_url":"https://v3.fal.media/files/x.png"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/signed/put":
			b, _ := io.ReadAll(r.Body)
			putBody = string(b)
			putType = r.Header.Get("Content-Type")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f := NewFalStorage(transport.New(transport.Config{Name: "fal", BaseURL: server.URL, APIKey: "fk", Auth: transport.KeyAuth}), nil)

	url, err := f.Upload(context.Background(), "data:image/png;base64,aGVsbG8=")

	require.NoError(t, err)
	assert.Equal(t, "https://v3.fal.media/files/x.png", url)
	assert.Equal(t, "hello", putBody)
	assert.Equal(t, "image/png", putType)
}

func TestFalStorage_InitiateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad key"}`)
	}))
	defer server.Close()

	f := NewFalStorage(transport.New(transport.Config{Name: "fal", BaseURL: server.URL, APIKey: "fk"}), nil)

	_, err := f.Upload(context.Background(), "aGVsbG8=")

	var p *media.ProviderError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, http.StatusUnauthorized, p.Status)
	assert.Equal(t, "bad key", p.Message)
}

func TestFalStorage_Available(t *testing.T) {
	assert.False(t, NewFalStorage(nil, nil).Available())
	assert.False(t, NewFalStorage(transport.New(transport.Config{Name: "fal"}), nil).Available())
	assert.True(t, NewFalStorage(transport.New(transport.Config{Name: "fal", APIKey: "x"}), nil).Available())
}

func TestKIEStream_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/file-stream-upload", r.URL.Path)
		assert.Equal(t, "Bearer kk", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "mediagen-uploads", r.FormValue("uploadPath"))
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		assert.Equal(t, "hello", string(b))
		assert.Equal(t, header.Filename, r.FormValue("fileName"))
		_, _ = io.WriteString(w, `{"code":200,"msg":"ok","data":{"downloadUrl":"https://kie.cdn/x.jpg"}}`)
	}))
	defer server.Close()

	k := NewKIEStream(transport.New(transport.Config{Name: "kie-upload", BaseURL: server.URL, APIKey: "kk"}), nil)

	url, err := k.Upload(context.Background(), "aGVsbG8=")

	require.NoError(t, err)
	assert.Equal(t, "https://kie.cdn/x.jpg", url)
}

func TestKIEStream_EnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":401,"msg":"unauthorized"}`)
	}))
	defer server.Close()

	k := NewKIEStream(transport.New(transport.Config{Name: "kie-upload", BaseURL: server.URL, APIKey: "kk"}), nil)

	_, err := k.Upload(context.Background(), "aGVsbG8=")

	var p *media.ProviderError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, 401, p.Status)
	assert.Equal(t, "unauthorized", p.Message)
}
