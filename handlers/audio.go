package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"isweep/services/transcribe"
)

type transcribeService interface {
	ProcessChunk(ctx context.Context, req transcribe.ChunkRequest) (*transcribe.ChunkResult, error)
	ClearSession(userID string, tabID int)
}

var _ transcribeService = (*transcribe.Service)(nil)

// AudioHandler feeds captured audio chunks into the transcription pipeline.
// When the pipeline is not configured (no ASR endpoint), Service is nil and
// the endpoints answer 503.
type AudioHandler struct {
	Service transcribeService
}

func NewAudioHandler(service transcribeService) *AudioHandler {
	return &AudioHandler{Service: service}
}

// Chunk accepts one base64 audio chunk. The response reports whether the
// chunk was only buffered or completed a batch, and carries any transcript
// segments with blocked-term flags.
func (h *AudioHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "transcription is not configured", http.StatusServiceUnavailable)
		return
	}

	var req transcribe.ChunkRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Service.ProcessChunk(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transcribe.ErrUserIDRequired) || errors.Is(err, transcribe.ErrEmptyAudio) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ClearSession drops the rolling buffer for a capture session.
func (h *AudioHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "transcription is not configured", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userID"])
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	tabID, err := strconv.Atoi(vars["tabID"])
	if err != nil {
		http.Error(w, "tab id must be an integer", http.StatusBadRequest)
		return
	}

	h.Service.ClearSession(userID, tabID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AudioHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
