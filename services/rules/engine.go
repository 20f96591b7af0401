package rules

import (
	"fmt"
	"strings"

	"isweep/models"
)

// ConfidenceThreshold is the minimum classifier confidence required for a
// category detection to trigger its preference. Fixed by design; not
// user-configurable.
const ConfidenceThreshold = 0.70

// Decide resolves a single event against the user's preferences.
//
// Priority order:
//  1. blocked-term match on the event text — a lexical hit outranks any
//     probabilistic classification
//  2. pre-classified category with confidence at or above the threshold
//     (or no confidence supplied at all)
//  3. the inert no-action decision
//
// A failed or empty lookup never fails the decision: each tier degrades to
// the next one, and the fallback always applies.
func Decide(event models.Event, lookup PreferenceLookup) models.DecisionResponse {
	prefs, err := lookup.All(event.UserID)
	if err != nil {
		prefs = nil
	}

	// 1) Blocked terms in the event text.
	if strings.TrimSpace(event.Text) != "" && len(prefs) > 0 {
		if match := FindBlockedMatch(event.Text, prefs); match != nil {
			// Re-fetch the stored rule: if it vanished or was disabled
			// since the snapshot, treat the match as void and fall
			// through instead of failing the request.
			pref, err := lookup.Get(event.UserID, match.Category)
			if err == nil && pref != nil && pref.Enabled {
				return models.DecisionResponse{
					Action:          pref.Action,
					DurationSeconds: pref.DurationSeconds,
					ShowIcon:        true,
					Reason:          fmt.Sprintf("Blocked word match: '%s'", match.Term),
					MatchedCategory: match.Category,
					MatchedTerm:     match.Term,
				}
			}
		}
	}

	// 2) Pre-classified category with sufficient confidence.
	if event.ContentType != "" {
		category := strings.TrimSpace(strings.ToLower(event.ContentType))
		if pref, ok := prefs[category]; ok && pref.Enabled {
			if event.Confidence == nil || *event.Confidence >= ConfidenceThreshold {
				return models.DecisionResponse{
					Action:          pref.Action,
					DurationSeconds: pref.DurationSeconds,
					ShowIcon:        true,
					Reason:          categoryReason(category, event.Confidence),
					MatchedCategory: category,
					MatchedTerm:     category,
				}
			}
		}
	}

	// 3) Nothing applies.
	return models.DecisionResponse{
		Action:          models.ActionNone,
		DurationSeconds: 0,
		Reason:          "No filter matched",
	}
}

func categoryReason(category string, confidence *float64) string {
	if confidence == nil {
		return fmt.Sprintf("Matched category '%s' (no confidence provided)", category)
	}
	return fmt.Sprintf("Matched category '%s' (confidence=%.2f)", category, *confidence)
}
