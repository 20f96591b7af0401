package models

// Event is one decision request from the frontend: a subtitle line, a
// transcript snippet, or a pre-classified detection.
type Event struct {
	UserID         string   `json:"userId"`
	Timestamp      float64  `json:"timestamp"`             // playback position in seconds
	Source         string   `json:"source"`                // "browser", "extension", "tv", ...
	Text           string   `json:"text,omitempty"`        // subtitle or transcript text
	ContentType    string   `json:"contentType,omitempty"` // category when the caller already classified
	Confidence     *float64 `json:"confidence,omitempty"`  // classifier confidence in [0,1], nil when unknown
	ManualOverride bool     `json:"manualOverride,omitempty"`
}

// DecisionResponse tells the frontend what to do about an event.
type DecisionResponse struct {
	Action          Action  `json:"action"`
	DurationSeconds float64 `json:"durationSeconds"`
	ShowIcon        bool    `json:"showIcon"`
	Reason          string  `json:"reason,omitempty"`
	MatchedCategory string  `json:"matchedCategory,omitempty"`
	MatchedTerm     string  `json:"matchedTerm,omitempty"`
}

// TranscriptSegment is a timed slice of speech-to-text output. The transcribe
// service fills the Flagged fields when the segment text hits a blocked term.
type TranscriptSegment struct {
	Text            string  `json:"text"`
	StartSeconds    float64 `json:"startSeconds"`
	EndSeconds      float64 `json:"endSeconds"`
	Confidence      float64 `json:"confidence"`
	Flagged         bool    `json:"flagged"`
	FlaggedCategory string  `json:"flaggedCategory,omitempty"`
	FlaggedTerm     string  `json:"flaggedTerm,omitempty"`
}
