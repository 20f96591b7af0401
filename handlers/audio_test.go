package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"isweep/services/transcribe"
)

// stubTranscribe records calls and returns a canned result.
type stubTranscribe struct {
	result  *transcribe.ChunkResult
	err     error
	cleared []string
}

func (s *stubTranscribe) ProcessChunk(ctx context.Context, req transcribe.ChunkRequest) (*transcribe.ChunkResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubTranscribe) ClearSession(userID string, tabID int) {
	s.cleared = append(s.cleared, userID)
}

func newAudioRouter(h *AudioHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/audio/chunk", h.Chunk).Methods(http.MethodPost)
	r.HandleFunc("/api/audio/sessions/{userID}/{tabID}", h.ClearSession).Methods(http.MethodDelete)
	return r
}

func TestAudioChunkUnconfigured(t *testing.T) {
	router := newAudioRouter(NewAudioHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/audio/chunk", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a transcription backend, got %d", rec.Code)
	}
}

func TestAudioChunkBuffered(t *testing.T) {
	stub := &stubTranscribe{result: &transcribe.ChunkResult{Buffered: 2}}
	router := newAudioRouter(NewAudioHandler(stub))

	body := `{"userId": "u1", "tabId": 3, "seq": 2, "audio": "AQID"}`
	req := httptest.NewRequest(http.MethodPost, "/api/audio/chunk", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result transcribe.ChunkResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Transcribed || result.Buffered != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAudioChunkValidationErrors(t *testing.T) {
	stub := &stubTranscribe{err: transcribe.ErrEmptyAudio}
	router := newAudioRouter(NewAudioHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/api/audio/chunk", strings.NewReader(`{"userId": "u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty audio, got %d", rec.Code)
	}
}

func TestAudioClearSession(t *testing.T) {
	stub := &stubTranscribe{}
	router := newAudioRouter(NewAudioHandler(stub))

	req := httptest.NewRequest(http.MethodDelete, "/api/audio/sessions/u1/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(stub.cleared) != 1 || stub.cleared[0] != "u1" {
		t.Fatalf("expected session cleared for u1, got %v", stub.cleared)
	}
}

func TestAudioClearSessionBadTabID(t *testing.T) {
	router := newAudioRouter(NewAudioHandler(&stubTranscribe{}))

	req := httptest.NewRequest(http.MethodDelete, "/api/audio/sessions/u1/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric tab id, got %d", rec.Code)
	}
}
