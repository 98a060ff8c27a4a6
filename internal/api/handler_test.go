package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"story-intake-go/internal/pipeline"
	"story-intake-go/internal/staging"
	"story-intake-go/internal/types"
)

type mockStore struct {
	id        string
	err       error
	callCount int
}

func (m *mockStore) InsertStory(ctx context.Context, story *types.Story) (string, error) {
	m.callCount++
	if m.err != nil {
		return "", m.err
	}
	return m.id, nil
}

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	return m.text, m.err
}

type mockNotifier struct {
	gotTranscript string
	callCount     int
}

func (m *mockNotifier) SendTranscript(ctx context.Context, email, title, transcript string) error {
	m.callCount++
	m.gotTranscript = transcript
	return nil
}

func newTestHandler(t *testing.T, store *mockStore, tr *mockTranscriber, n *mockNotifier) *Handler {
	t.Helper()
	holder, err := staging.New(t.TempDir())
	if err != nil {
		t.Fatalf("staging holder: %v", err)
	}
	p := pipeline.New(store, tr, n, holder, time.Second)
	return NewHandler(p, 15<<20)
}

func postSubmission(t *testing.T, h *Handler, fields map[string]string, audio []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "recording.wav")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(audio)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/stories", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_PlainSubmission(t *testing.T) {
	store := &mockStore{id: "65b2f0c8aa01aa01aa01aa01"}
	h := newTestHandler(t, store, &mockTranscriber{}, &mockNotifier{})

	rec := postSubmission(t, h, map[string]string{
		"name":                "Jane",
		"anonymous":           "false",
		"birthdate":           "1990-01-01",
		"transcriptRequested": "false",
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		StoryID string `json:"storyId"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.StoryID != store.id {
		t.Errorf("expected storyId %q, got %q", store.id, resp.StoryID)
	}
	if resp.Message != pipeline.MsgSaved {
		t.Errorf("expected %q, got %q", pipeline.MsgSaved, resp.Message)
	}
}

func TestHandler_TranscriptEmailed(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(t, &mockStore{id: "abc123"}, &mockTranscriber{text: "hello world"}, notifier)

	rec := postSubmission(t, h, map[string]string{
		"name":                "Jane",
		"birthdate":           "1990-01-01",
		"email":               "jane@example.com",
		"transcriptRequested": "true",
	}, []byte("fake-audio"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if notifier.callCount != 1 || notifier.gotTranscript != "hello world" {
		t.Errorf("expected one email with transcript, got %d / %q", notifier.callCount, notifier.gotTranscript)
	}
	var resp struct {
		Message string `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != pipeline.MsgSavedTranscriptSent {
		t.Errorf("expected %q, got %q", pipeline.MsgSavedTranscriptSent, resp.Message)
	}
}

func TestHandler_ValidationFailure(t *testing.T) {
	store := &mockStore{id: "abc123"}
	h := newTestHandler(t, store, &mockTranscriber{}, &mockNotifier{})

	rec := postSubmission(t, h, map[string]string{
		"anonymous": "false",
		"birthdate": "1990-01-01",
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
	if store.callCount != 0 {
		t.Errorf("store must not gain a record on validation failure, got %d inserts", store.callCount)
	}
}

func TestHandler_PersistenceFailure(t *testing.T) {
	h := newTestHandler(t, &mockStore{err: errors.New("connection refused")}, &mockTranscriber{}, &mockNotifier{})

	rec := postSubmission(t, h, map[string]string{
		"name":      "Jane",
		"birthdate": "1990-01-01",
	}, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != "Failed to save story" {
		t.Errorf("expected generic persistence error, got %q", resp.Error)
	}
}

func TestHandler_MalformedBodyIsClientFault(t *testing.T) {
	store := &mockStore{id: "abc123"}
	h := newTestHandler(t, store, &mockTranscriber{}, &mockNotifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewBufferString("not multipart at all"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", rec.Code)
	}
	if store.callCount != 0 {
		t.Errorf("store must not gain a record, got %d inserts", store.callCount)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &mockStore{id: "abc123"}, &mockTranscriber{}, &mockNotifier{})
	req := httptest.NewRequest(http.MethodGet, "/api/stories", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
