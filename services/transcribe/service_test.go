package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"isweep/models"
)

// fakeTranscriber records the audio it is asked to transcribe and returns a
// canned segment list.
type fakeTranscriber struct {
	calls    [][]byte
	segments []models.TranscriptSegment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) ([]models.TranscriptSegment, error) {
	f.calls = append(f.calls, audio)
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

// fakeLookup serves a single language preference with one blocked word.
type fakeLookup struct {
	term string
	err  error
}

func (f fakeLookup) All(userID string) (map[string]models.Preference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]models.Preference{
		models.CategoryLanguage: {
			UserID:       userID,
			Category:     models.CategoryLanguage,
			Enabled:      true,
			Action:       models.ActionMute,
			BlockedWords: []string{f.term},
		},
	}, nil
}

func (f fakeLookup) Get(userID, category string) (*models.Preference, error) {
	prefs, err := f.All(userID)
	if err != nil {
		return nil, err
	}
	if pref, ok := prefs[category]; ok {
		return &pref, nil
	}
	return nil, nil
}

func encodeChunk(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestProcessChunkBuffersUntilBatchComplete(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []models.TranscriptSegment{{Text: "hello there"}}}
	svc, err := NewService(transcriber, fakeLookup{term: "unused"}, 3, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	for seq := 1; seq <= 2; seq++ {
		result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
			UserID: "u1",
			TabID:  7,
			Seq:    seq,
			Audio:  encodeChunk([]byte{byte(seq)}),
		})
		if err != nil {
			t.Fatalf("chunk %d returned error: %v", seq, err)
		}
		if result.Transcribed {
			t.Fatalf("chunk %d should only be buffered", seq)
		}
		if result.Buffered != seq {
			t.Fatalf("chunk %d: expected buffered count %d, got %d", seq, seq, result.Buffered)
		}
	}
	if len(transcriber.calls) != 0 {
		t.Fatalf("transcriber called before batch was complete: %d calls", len(transcriber.calls))
	}

	// Third chunk completes the batch: buffered audio is concatenated in
	// arrival order and sent as one request.
	result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1",
		TabID:  7,
		Seq:    3,
		Audio:  encodeChunk([]byte{3}),
	})
	if err != nil {
		t.Fatalf("third chunk returned error: %v", err)
	}
	if !result.Transcribed {
		t.Fatal("expected third chunk to trigger transcription")
	}
	if result.Buffered != 0 {
		t.Fatalf("expected buffer drained after transcription, got %d", result.Buffered)
	}
	if len(result.Segments) != 1 || result.Segments[0].Text != "hello there" {
		t.Fatalf("unexpected segments: %+v", result.Segments)
	}

	if len(transcriber.calls) != 1 {
		t.Fatalf("expected exactly one transcriber call, got %d", len(transcriber.calls))
	}
	if !bytes.Equal(transcriber.calls[0], []byte{1, 2, 3}) {
		t.Fatalf("expected concatenated audio [1 2 3], got %v", transcriber.calls[0])
	}
}

func TestProcessChunkFlagsBlockedSegments(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []models.TranscriptSegment{
		{Text: "nothing to see here", StartSeconds: 0, EndSeconds: 2},
		{Text: "pure profanity ahead", StartSeconds: 2, EndSeconds: 4},
	}}
	svc, err := NewService(transcriber, fakeLookup{term: "profanity"}, 1, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1",
		TabID:  1,
		Seq:    1,
		Audio:  encodeChunk([]byte{0x01}),
	})
	if err != nil {
		t.Fatalf("chunk returned error: %v", err)
	}
	if !result.Transcribed || len(result.Segments) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if result.Segments[0].Flagged {
		t.Fatalf("clean segment was flagged: %+v", result.Segments[0])
	}
	flagged := result.Segments[1]
	if !flagged.Flagged {
		t.Fatal("expected second segment to be flagged")
	}
	if flagged.FlaggedCategory != models.CategoryLanguage || flagged.FlaggedTerm != "profanity" {
		t.Fatalf("unexpected flag details: %+v", flagged)
	}
}

func TestProcessChunkLookupFailureLeavesSegmentsUnflagged(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []models.TranscriptSegment{
		{Text: "pure profanity ahead"},
	}}
	svc, err := NewService(transcriber, fakeLookup{term: "profanity", err: errors.New("store down")}, 1, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1",
		Seq:    1,
		Audio:  encodeChunk([]byte{0x01}),
	})
	if err != nil {
		t.Fatalf("chunk returned error: %v", err)
	}
	if result.Segments[0].Flagged {
		t.Fatal("segments must not be flagged when the preference lookup fails")
	}
}

func TestProcessChunkRejectsBadInput(t *testing.T) {
	svc, err := NewService(&fakeTranscriber{}, fakeLookup{term: "x"}, 3, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{Audio: encodeChunk([]byte{1})}); !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("expected ErrUserIDRequired, got %v", err)
	}
	if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{UserID: "u1", Audio: "not%%base64"}); err == nil {
		t.Fatal("expected error for malformed base64 payload")
	}
	if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{UserID: "u1", Audio: ""}); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestProcessChunkTranscriberErrorPropagates(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("asr backend unreachable")}
	svc, err := NewService(transcriber, fakeLookup{term: "x"}, 1, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1",
		Seq:    1,
		Audio:  encodeChunk([]byte{0x01}),
	}); err == nil {
		t.Fatal("expected transcriber error to propagate")
	}
}

func TestClearSessionResetsCadence(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []models.TranscriptSegment{{Text: "hi"}}}
	svc, err := NewService(transcriber, fakeLookup{term: "x"}, 3, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	for seq := 1; seq <= 2; seq++ {
		if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{
			UserID: "u1", TabID: 4, Seq: seq, Audio: encodeChunk([]byte{byte(seq)}),
		}); err != nil {
			t.Fatalf("chunk %d returned error: %v", seq, err)
		}
	}

	svc.ClearSession("u1", 4)

	// The next chunk starts a fresh buffer, so no transcription fires yet.
	result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1", TabID: 4, Seq: 3, Audio: encodeChunk([]byte{3}),
	})
	if err != nil {
		t.Fatalf("chunk after clear returned error: %v", err)
	}
	if result.Transcribed {
		t.Fatal("expected cleared session to restart buffering")
	}
	if result.Buffered != 1 {
		t.Fatalf("expected buffered count 1 after clear, got %d", result.Buffered)
	}
}

func TestSessionsAreIsolatedByTab(t *testing.T) {
	transcriber := &fakeTranscriber{segments: []models.TranscriptSegment{{Text: "hi"}}}
	svc, err := NewService(transcriber, fakeLookup{term: "x"}, 2, 10)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1", TabID: 1, Seq: 1, Audio: encodeChunk([]byte{1}),
	}); err != nil {
		t.Fatalf("tab 1 chunk returned error: %v", err)
	}

	// A chunk on a different tab must not complete tab 1's batch.
	result, err := svc.ProcessChunk(context.Background(), ChunkRequest{
		UserID: "u1", TabID: 2, Seq: 1, Audio: encodeChunk([]byte{9}),
	})
	if err != nil {
		t.Fatalf("tab 2 chunk returned error: %v", err)
	}
	if result.Transcribed {
		t.Fatal("tab 2 should still be buffering")
	}
	if result.Buffered != 1 {
		t.Fatalf("expected independent buffer per tab, got count %d", result.Buffered)
	}
}

func TestNewServiceRequiresTranscriber(t *testing.T) {
	if _, err := NewService(nil, fakeLookup{}, 3, 10); !errors.Is(err, ErrTranscriberRequired) {
		t.Fatalf("expected ErrTranscriberRequired, got %v", err)
	}
}
