package api

import (
	"encoding/json"
	"net/http"

	"story-intake-go/internal/ingest"
	"story-intake-go/internal/logger"
	"story-intake-go/internal/pipeline"
)

type submitResponse struct {
	Success bool   `json:"success"`
	StoryID string `json:"storyId"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the story intake endpoint. The response is held until the
// whole pipeline completes, transcription and email included.
type Handler struct {
	pipeline       *pipeline.Pipeline
	maxUploadBytes int64
	log            *logger.Logger
}

func NewHandler(p *pipeline.Pipeline, maxUploadBytes int64) *Handler {
	return &Handler{
		pipeline:       p,
		maxUploadBytes: maxUploadBytes,
		log:            logger.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	reqLog := h.log.WithRequest(r).WithField("handler", "submit_story")
	reqLog.Info("story submission received")

	story, audio, err := ingest.ParseRequest(r, h.maxUploadBytes)
	if err != nil {
		if ingest.IsClientError(err) {
			reqLog.WithField("error", err.Error()).Warn("submission rejected")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		reqLog.WithField("error", err.Error()).Error("submission failed during extraction")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to save story"})
		return
	}

	res, err := h.pipeline.Process(r.Context(), story, audio)
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("submission failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to save story"})
		return
	}

	reqLog.WithField("story_id", res.StoryID).Info("submission completed")
	writeJSON(w, http.StatusOK, submitResponse{
		Success: true,
		StoryID: res.StoryID,
		Message: res.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
