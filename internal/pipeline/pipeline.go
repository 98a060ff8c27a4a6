package pipeline

import (
	"context"
	"io"
	"time"

	"story-intake-go/internal/logger"
	"story-intake-go/internal/staging"
	"story-intake-go/internal/types"
)

// StorySaver persists one submission and returns its generated id.
type StorySaver interface {
	InsertStory(ctx context.Context, story *types.Story) (string, error)
}

// Transcriber converts an audio stream to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error)
}

// TranscriptNotifier emails a transcript to the submitter.
type TranscriptNotifier interface {
	SendTranscript(ctx context.Context, email, title, transcript string) error
}

// The three user-visible outcomes of one submission. Persistence always
// succeeded by the time any of these is returned; the degraded variants only
// tell the caller which optional step fell over.
const (
	MsgSaved                 = "Story saved successfully."
	MsgSavedTranscriptSent   = "Story saved. Transcript email sent."
	MsgSavedTranscriptFailed = "Story saved, but the transcript could not be generated."
	MsgSavedEmailFailed      = "Story saved, but the transcript email could not be sent."
)

type Result struct {
	StoryID string
	Message string
}

// Pipeline sequences one submission: stage audio, persist metadata, then
// conditionally transcribe and notify. Failures before the insert abort the
// run; failures after it degrade the result message and never roll the
// record back.
type Pipeline struct {
	store             StorySaver
	transcriber       Transcriber
	notifier          TranscriptNotifier
	holder            *staging.Holder
	transcribeTimeout time.Duration
	log               *logger.Logger
}

func New(store StorySaver, transcriber Transcriber, notifier TranscriptNotifier, holder *staging.Holder, transcribeTimeout time.Duration) *Pipeline {
	if transcribeTimeout <= 0 {
		transcribeTimeout = 60 * time.Second
	}
	return &Pipeline{
		store:             store,
		transcriber:       transcriber,
		notifier:          notifier,
		holder:            holder,
		transcribeTimeout: transcribeTimeout,
		log:               logger.New(),
	}
}

// Process runs one already-extracted submission to completion. audio may be
// nil for the plain variant. The staged audio is released on every exit path.
func (p *Pipeline) Process(ctx context.Context, story *types.Story, audio *types.AudioArtifact) (Result, error) {
	log := p.log.WithStory(story)

	var handle *staging.Handle
	if audio != nil {
		h, err := p.holder.Acquire(audio.Data, audio.Filename)
		if err != nil {
			log.WithError(err).Error("failed to stage audio")
			return Result{}, err
		}
		handle = h
	}
	defer p.holder.Release(handle)

	id, err := p.store.InsertStory(ctx, story)
	if err != nil {
		log.WithError(err).Error("failed to persist story")
		return Result{}, err
	}
	log = log.WithField("story_id", id)
	log.Info("story persisted")

	if story.Kind() != types.TranscriptSubmission {
		return Result{StoryID: id, Message: MsgSaved}, nil
	}
	if handle == nil {
		// Ingest rejects transcript submissions without audio; if a caller
		// skips that, the record is already saved, so degrade instead of
		// dereferencing a missing handle.
		log.Warn("transcript requested but no audio was staged")
		return Result{StoryID: id, Message: MsgSavedTranscriptFailed}, nil
	}

	transcript, err := p.transcribe(ctx, handle, audio)
	if err != nil {
		// Record is kept; only the optional transcript step is reported failed.
		log.WithError(err).Warn("transcription failed, skipping email")
		return Result{StoryID: id, Message: MsgSavedTranscriptFailed}, nil
	}

	if err := p.notifier.SendTranscript(ctx, story.Email, story.Title(), transcript); err != nil {
		log.WithError(err).Warn("transcript email failed")
		return Result{StoryID: id, Message: MsgSavedEmailFailed}, nil
	}
	log.Info("transcript emailed")
	return Result{StoryID: id, Message: MsgSavedTranscriptSent}, nil
}

// transcribe streams the staged audio to the transcriber under a bounded
// deadline. One attempt only.
func (p *Pipeline) transcribe(ctx context.Context, handle *staging.Handle, audio *types.AudioArtifact) (string, error) {
	stream, err := p.holder.Open(handle)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	ctx, cancel := context.WithTimeout(ctx, p.transcribeTimeout)
	defer cancel()
	return p.transcriber.Transcribe(ctx, stream, audio.Filename, audio.ContentType)
}
