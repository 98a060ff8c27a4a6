package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"story-intake-go/internal/types"
)

var (
	// ErrPayloadTooLarge is returned when the multipart payload exceeds the
	// configured upload limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMissingAudio is returned when a transcript was requested but no
	// audio part was uploaded.
	ErrMissingAudio = errors.New("audio recording is required when a transcript is requested")

	// ErrMalformedPayload is returned when the request body is not a
	// well-formed multipart form.
	ErrMalformedPayload = errors.New("malformed multipart payload")
)

// ValidationError names the required form field that was absent.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

// ParseRequest turns a multipart submission into an unpersisted Story and,
// when an audio part is present, the raw AudioArtifact. It only parses and
// validates; it never touches storage.
//
// Booleans arrive as the literal text "true". Required fields depend on the
// submission variant: birthdate always, name unless anonymous, email only
// when a transcript is requested. Birthdate is stored as received; the 18+
// rule is enforced by the client form, not re-checked here.
func ParseRequest(r *http.Request, maxBytes int64) (*types.Story, *types.AudioArtifact, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if isTooLarge(err) {
			return nil, nil, ErrPayloadTooLarge
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	story := &types.Story{
		Name:                strings.TrimSpace(r.FormValue("name")),
		Anonymous:           r.FormValue("anonymous") == "true",
		Birthdate:           strings.TrimSpace(r.FormValue("birthdate")),
		Email:               strings.TrimSpace(r.FormValue("email")),
		StoryTitle:          strings.TrimSpace(r.FormValue("storyTitle")),
		Timestamp:           time.Now().UTC(),
		TranscriptRequested: r.FormValue("transcriptRequested") == "true",
		IP:                  clientIP(r),
		UserAgent:           r.UserAgent(),
	}

	if story.Birthdate == "" {
		return nil, nil, &ValidationError{Field: "birthdate"}
	}
	if !story.Anonymous && story.Name == "" {
		return nil, nil, &ValidationError{Field: "name"}
	}
	if story.TranscriptRequested && story.Email == "" {
		return nil, nil, &ValidationError{Field: "email"}
	}

	audio, err := audioPart(r)
	if err != nil {
		return nil, nil, err
	}
	if story.Kind() == types.TranscriptSubmission && audio == nil {
		return nil, nil, ErrMissingAudio
	}

	return story, audio, nil
}

func audioPart(r *http.Request) (*types.AudioArtifact, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			return nil, ErrPayloadTooLarge
		}
		// Reading an already-parsed part fails on our side (temp file I/O),
		// not the client's; left unwrapped so the handler reports 500.
		return nil, fmt.Errorf("read audio part: %w", err)
	}
	return &types.AudioArtifact{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

// IsClientError reports whether a ParseRequest failure was caused by the
// request itself. Anything else is a server-side fault and should surface as
// an internal error, not a 400.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrMissingAudio) ||
		errors.Is(err, ErrMalformedPayload)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
