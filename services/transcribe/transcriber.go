package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"isweep/models"
)

// Transcriber converts raw audio bytes into timed transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) ([]models.TranscriptSegment, error)
}

// HTTPTranscriber sends audio to a remote speech-to-text server (a
// faster-whisper HTTP wrapper) and decodes the returned segments.
type HTTPTranscriber struct {
	endpoint string
	client   *http.Client
}

func NewHTTPTranscriber(endpoint string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Segments []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// Transcribe posts the audio and retries transient failures. Client errors
// from the server are not retried.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) ([]models.TranscriptSegment, error) {
	var decoded transcriptionResponse

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(audio))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", mimeType)

			resp, err := t.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("transcriber returned %s", resp.Status)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("transcriber returned %s", resp.Status))
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			decoded = transcriptionResponse{}
			if err := json.Unmarshal(body, &decoded); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode transcription: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	segments := make([]models.TranscriptSegment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		segments = append(segments, models.TranscriptSegment{
			Text:         seg.Text,
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Confidence:   seg.Confidence,
		})
	}
	return segments, nil
}
