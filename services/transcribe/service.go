// Package transcribe buffers audio chunks per capture session, runs them
// through a speech-to-text backend, and flags transcript segments that
// contain blocked terms.
package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"isweep/models"
	"isweep/services/rules"
)

var (
	ErrTranscriberRequired = errors.New("transcriber not configured")
	ErrUserIDRequired      = errors.New("user id is required")
	ErrEmptyAudio          = errors.New("audio payload is empty")
)

type sessionKey struct {
	userID string
	tabID  int
}

// ChunkRequest is one incoming audio chunk from a capture session.
type ChunkRequest struct {
	UserID   string `json:"userId"`
	TabID    int    `json:"tabId"`
	Seq      int    `json:"seq"`
	Audio    string `json:"audio"` // base64-encoded audio bytes
	MimeType string `json:"mimeType,omitempty"`
}

// ChunkResult reports what happened to a chunk: either it was only buffered,
// or it completed a batch and the accumulated audio was transcribed.
type ChunkResult struct {
	Buffered    int                        `json:"buffered"`
	Transcribed bool                       `json:"transcribed"`
	Segments    []models.TranscriptSegment `json:"segments,omitempty"`
}

// Service owns the per-session rolling buffers and the transcription cadence.
type Service struct {
	mu          sync.Mutex
	buffers     map[sessionKey]*chunkBuffer
	transcriber Transcriber
	prefs       rules.PreferenceLookup
	every       int // transcribe once this many chunks accumulate
	maxChunks   int
}

// NewService constructs the transcription pipeline. prefs is used to flag
// blocked content in returned segments.
func NewService(transcriber Transcriber, prefs rules.PreferenceLookup, processEveryChunks, maxBufferChunks int) (*Service, error) {
	if transcriber == nil {
		return nil, ErrTranscriberRequired
	}
	if processEveryChunks <= 0 {
		processEveryChunks = 3
	}
	if maxBufferChunks <= 0 {
		maxBufferChunks = 10
	}
	return &Service{
		buffers:     make(map[sessionKey]*chunkBuffer),
		transcriber: transcriber,
		prefs:       prefs,
		every:       processEveryChunks,
		maxChunks:   maxBufferChunks,
	}, nil
}

// ProcessChunk decodes and buffers one chunk. Every s.every chunks the
// accumulated audio is drained, transcribed, and each segment scanned for
// blocked terms.
func (s *Service) ProcessChunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	data, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode audio chunk: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	buf := s.buffer(sessionKey{userID: userID, tabID: req.TabID})
	count := buf.Append(req.Seq, data)

	if count%s.every != 0 {
		return &ChunkResult{Buffered: count}, nil
	}

	audio := buf.Drain()
	if audio == nil {
		return &ChunkResult{Buffered: 0}, nil
	}

	segments, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return nil, err
	}

	segments = s.flagSegments(userID, segments)
	return &ChunkResult{Buffered: 0, Transcribed: true, Segments: segments}, nil
}

// ClearSession drops the buffer for a session, e.g. when the tab closes.
func (s *Service) ClearSession(userID string, tabID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, sessionKey{userID: strings.TrimSpace(userID), tabID: tabID})
}

func (s *Service) buffer(key sessionKey) *chunkBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[key]
	if !ok {
		buf = newChunkBuffer(s.maxChunks)
		s.buffers[key] = buf
	}
	return buf
}

// flagSegments runs the blocked-term matcher over each segment. A failed
// preference lookup leaves the segments unflagged rather than dropping them.
func (s *Service) flagSegments(userID string, segments []models.TranscriptSegment) []models.TranscriptSegment {
	if s.prefs == nil || len(segments) == 0 {
		return segments
	}

	prefs, err := s.prefs.All(userID)
	if err != nil {
		log.Printf("[transcribe] preference lookup failed for %s: %v", userID, err)
		return segments
	}

	for i := range segments {
		if match := rules.FindBlockedMatch(segments[i].Text, prefs); match != nil {
			segments[i].Flagged = true
			segments[i].FlaggedCategory = match.Category
			segments[i].FlaggedTerm = match.Term
		}
	}
	return segments
}
