package models

import "strings"

// Action represents the playback intervention the frontend should perform
// when filtered content is detected.
type Action string

const (
	ActionNone        Action = "none"
	ActionMute        Action = "mute"
	ActionSkip        Action = "skip"
	ActionFastForward Action = "fast_forward"
)

// ParseAction validates an action string received from a client.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionNone, ActionMute, ActionSkip, ActionFastForward:
		return Action(s), true
	}
	return "", false
}

// Well-known filter categories. Categories are plain string keys so clients
// can introduce new ones without a backend release; these three ship with
// default rules.
const (
	CategoryLanguage = "language"
	CategoryViolence = "violence"
	CategorySexual   = "sexual"
)

// DefaultCaptionOffsetMs is the caption timing offset applied by the player
// when a preference does not specify one.
const DefaultCaptionOffsetMs = 300

// Preference is a single filter rule: for one user and one category, what to
// do and which terms trigger it. BlockedWords holds terms contributed by
// preset packs; CustomWords holds the user's own additions. The two lists are
// persisted separately so presets can be re-toggled later without losing the
// user's words.
type Preference struct {
	UserID          string          `json:"userId"`
	Category        string          `json:"category"`
	Enabled         bool            `json:"enabled"`
	Action          Action          `json:"action"`
	DurationSeconds float64         `json:"durationSeconds"`
	BlockedWords    []string        `json:"blockedWords"`
	CustomWords     []string        `json:"customWords"`
	SelectedPacks   map[string]bool `json:"selectedPacks,omitempty"`
	CaptionOffsetMs int             `json:"captionOffsetMs"`
}

// EffectiveTerms returns the union of preset and custom terms with blanks
// dropped and duplicates removed, preserving first-seen order.
func (p Preference) EffectiveTerms() []string {
	seen := make(map[string]struct{}, len(p.BlockedWords)+len(p.CustomWords))
	terms := make([]string, 0, len(p.BlockedWords)+len(p.CustomWords))

	add := func(list []string) {
		for _, t := range list {
			trimmed := strings.TrimSpace(t)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			terms = append(terms, trimmed)
		}
	}

	add(p.BlockedWords)
	add(p.CustomWords)

	return terms
}

// PreferenceUpdate is the wire shape for bulk preference saves: one entry per
// category, user and category supplied by the route.
type PreferenceUpdate struct {
	Enabled         *bool           `json:"enabled,omitempty"`
	Action          string          `json:"action,omitempty"`
	DurationSeconds *float64        `json:"durationSeconds,omitempty"`
	BlockedWords    []string        `json:"blockedWords,omitempty"`
	CustomWords     []string        `json:"customWords,omitempty"`
	SelectedPacks   map[string]bool `json:"selectedPacks,omitempty"`
	CaptionOffsetMs *int            `json:"captionOffsetMs,omitempty"`
}

// DefaultPreferences returns the built-in rule catalog applied to any
// category the user has not customized.
func DefaultPreferences(userID string) []Preference {
	return []Preference{
		{UserID: userID, Category: CategoryLanguage, Enabled: true, Action: ActionMute, DurationSeconds: 0.5, BlockedWords: []string{}, CustomWords: []string{}, CaptionOffsetMs: DefaultCaptionOffsetMs},
		{UserID: userID, Category: CategoryViolence, Enabled: true, Action: ActionFastForward, DurationSeconds: 10, BlockedWords: []string{}, CustomWords: []string{}, CaptionOffsetMs: DefaultCaptionOffsetMs},
		{UserID: userID, Category: CategorySexual, Enabled: true, Action: ActionSkip, DurationSeconds: 30, BlockedWords: []string{}, CustomWords: []string{}, CaptionOffsetMs: DefaultCaptionOffsetMs},
	}
}
