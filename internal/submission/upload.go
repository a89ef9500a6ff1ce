package submission

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultUploadTimeout = 30 * time.Second

// UploadResult is the grading endpoint's reply. It is not interpreted.
type UploadResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// Uploader posts submission files as multipart form data.
type Uploader struct {
	url        string
	httpClient *http.Client
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient sets a custom HTTP client. Its timeout is kept as is.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) { u.httpClient = c }
}

// NewUploader creates an Uploader for url. timeout <= 0 uses 30s.
func NewUploader(url string, timeout time.Duration, opts ...Option) *Uploader {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	u := &Uploader{url: url, httpClient: &http.Client{Timeout: timeout}}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Upload sends the file at path in the "file" form field. Transport errors
// are returned; any HTTP status is a result, not an error.
func (u *Uploader) Upload(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "submission: read %s", path)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, eris.Wrap(err, "submission: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return nil, eris.Wrap(err, "submission: write form file")
	}
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "submission: close writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "submission: build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "submission: upload")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "submission: read response")
	}

	zap.L().Info("submission: uploaded",
		zap.String("file", path),
		zap.String("url", u.url),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(body)),
	)
	return &UploadResult{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
