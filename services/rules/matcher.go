// Package rules contains the blocked-term matcher and the decision engine.
// Everything here is a pure function over its inputs plus a read-only
// preference lookup; persistence lives in services/preferences.
package rules

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"isweep/models"
)

// PreferenceLookup provides read-only access to a user's effective filter
// rules. services/preferences.Service implements it.
type PreferenceLookup interface {
	// All returns the user's effective preference map with defaults filled
	// in for categories the user has not customized.
	All(userID string) (map[string]models.Preference, error)
	// Get returns the stored preference for a category, or nil when the
	// user has not customized it.
	Get(userID, category string) (*models.Preference, error)
}

// Match identifies which blocked term fired and under which category.
type Match struct {
	Category string
	Term     string
}

// FindBlockedMatch scans text against every enabled category's effective
// terms and returns the first hit, or nil.
//
// Matching is case-insensitive and punctuation-blind: both the text and each
// term are transliterated to ASCII, lower-cased, and split into alphanumeric
// tokens. A single-word term must equal a token exactly, so "cat" never
// fires inside "category". A multi-word term matches when every one of its
// words appears somewhere in the text as a whole word; the words do not have
// to be adjacent or ordered.
//
// Categories are scanned in sorted order so a text matching terms in more
// than one category always resolves the same way.
func FindBlockedMatch(text string, prefs map[string]models.Preference) *Match {
	tokens := tokenSet(text)
	if len(tokens) == 0 {
		return nil
	}

	categories := make([]string, 0, len(prefs))
	for category := range prefs {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		pref := prefs[category]
		if !pref.Enabled {
			continue
		}
		for _, term := range pref.EffectiveTerms() {
			if termMatches(term, tokens) {
				return &Match{Category: category, Term: strings.ToLower(strings.TrimSpace(term))}
			}
		}
	}

	return nil
}

func termMatches(term string, tokens map[string]struct{}) bool {
	parts := tokenize(term)
	if len(parts) == 0 {
		return false
	}
	for _, part := range parts {
		if _, ok := tokens[part]; !ok {
			return false
		}
	}
	return true
}

// tokenize normalizes a string into lower-case ASCII alphanumeric words.
// Punctuation acts as a separator, never as part of a token.
func tokenize(s string) []string {
	s = strings.ToLower(unidecode.Unidecode(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]struct{} {
	tokens := tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
