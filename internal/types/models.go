package types

import "time"

// SubmissionKind discriminates the two submission variants accepted by the
// intake endpoint. A transcript submission requires an email and audio; a
// plain submission may omit both.
type SubmissionKind string

const (
	PlainSubmission      SubmissionKind = "plain"
	TranscriptSubmission SubmissionKind = "transcript"
)

// Story is one submitted story as persisted in the "stories" collection.
// Never mutated after creation; ID is assigned by the store on insert.
type Story struct {
	ID                  string    `bson:"-" json:"id,omitempty"`
	Name                string    `bson:"name,omitempty" json:"name,omitempty"`
	Anonymous           bool      `bson:"anonymous" json:"anonymous"`
	Birthdate           string    `bson:"birthdate" json:"birthdate"`
	Email               string    `bson:"email,omitempty" json:"email,omitempty"`
	StoryTitle          string    `bson:"storyTitle,omitempty" json:"storyTitle,omitempty"`
	Timestamp           time.Time `bson:"timestamp" json:"timestamp"`
	TranscriptRequested bool      `bson:"transcriptRequested" json:"transcriptRequested"`
	IP                  string    `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent           string    `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
}

// Kind returns the submission variant the story was validated as.
func (s *Story) Kind() SubmissionKind {
	if s.TranscriptRequested {
		return TranscriptSubmission
	}
	return PlainSubmission
}

// Title returns the story title with the fallback used in outbound email.
func (s *Story) Title() string {
	if s.StoryTitle == "" {
		return "Untitled"
	}
	return s.StoryTitle
}

// AudioArtifact holds the uploaded recording for the duration of one
// submission's processing. Owned by a single pipeline run and never persisted.
type AudioArtifact struct {
	Data        []byte
	ContentType string
	Filename    string
}
