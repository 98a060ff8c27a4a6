package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"story-intake-go/internal/logger"
)

// ErrStorageUnavailable is returned when the staged audio cannot be written.
// This aborts a submission before anything is persisted.
var ErrStorageUnavailable = errors.New("staging storage unavailable")

// Holder stages uploaded audio on disk for the duration of one submission's
// processing. Every acquired handle must be released exactly once; the
// orchestrator defers the release so the file is removed on all exit paths.
type Holder struct {
	dir string
	log *logger.Logger
}

// Handle points at one staged audio file.
type Handle struct {
	path string
}

func (h *Handle) Path() string { return h.path }

func New(dir string) (*Holder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Holder{
		dir: dir,
		log: logger.New(),
	}, nil
}

// Acquire writes the audio bytes under a collision-resistant name
// (millisecond timestamp + sanitized original filename).
func (h *Holder) Acquire(data []byte, filename string) (*Handle, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitize(filename))
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Handle{path: path}, nil
}

// Open returns a readable stream over the staged bytes. The caller closes it.
func (h *Holder) Open(hd *Handle) (io.ReadCloser, error) {
	f, err := os.Open(hd.path)
	if err != nil {
		return nil, fmt.Errorf("open staged audio: %w", err)
	}
	return f, nil
}

// Release deletes the staged file. Safe to call with a nil handle so the
// orchestrator can defer it unconditionally.
func (h *Holder) Release(hd *Handle) {
	if hd == nil {
		return
	}
	if err := os.Remove(hd.path); err != nil && !os.IsNotExist(err) {
		h.log.WithError(err).WithField("path", hd.path).Warn("failed to remove staged audio")
	}
}

// sanitize keeps the original filename recognizable while stripping path
// separators and anything else that does not belong in a file name.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "audio"
	}
	return name
}
