package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// Failure classes of the speech-to-text capability. All are terminal for the
// current submission's transcription step; the caller never retries.
var (
	ErrUnsupportedFormat  = errors.New("transcription: unsupported audio format")
	ErrQuotaExceeded      = errors.New("transcription: quota exceeded")
	ErrServiceUnavailable = errors.New("transcription: service unavailable")
)

// Client talks to the external transcription service: one multipart POST with
// the raw audio and a format hint, one plain-text transcript back. No
// polling, no retry; the HTTP client timeout bounds the worst case.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type transcriptResponse struct {
	Text string `json:"text"`
}

// Transcribe converts the audio stream to text. Supports mock mode via env
// USE_MOCK_TRANSCRIBE=true for offline demos.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		return "MOCK TRANSCRIPT: This is where the submitted story would be.", nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: TRANSCRIBE_URL not set", ErrServiceUnavailable)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := createAudioPart(mw, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnsupportedMediaType:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.TrimSpace(string(raw)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, strings.TrimSpace(string(raw)))
	default:
		return "", fmt.Errorf("%w: http %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tr transcriptResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrServiceUnavailable, err)
	}
	return tr.Text, nil
}

// createAudioPart builds the file part with the declared content type so the
// service gets a format hint alongside the bytes.
func createAudioPart(mw *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, strings.ReplaceAll(filename, `"`, "")))
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}
