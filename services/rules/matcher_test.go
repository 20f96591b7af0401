package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isweep/models"
)

func languagePref(terms ...string) models.Preference {
	return models.Preference{
		UserID:       "u1",
		Category:     models.CategoryLanguage,
		Enabled:      true,
		Action:       models.ActionMute,
		BlockedWords: terms,
	}
}

func TestFindBlockedMatch_SingleWord(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("profanity"),
	}

	match := FindBlockedMatch("This contains profanity in it", prefs)
	require.NotNil(t, match)
	assert.Equal(t, models.CategoryLanguage, match.Category)
	assert.Equal(t, "profanity", match.Term)
}

func TestFindBlockedMatch_WordBoundaries(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("cat"),
	}

	// "cat" inside longer tokens must not fire.
	assert.Nil(t, FindBlockedMatch("browse the categories", prefs))
	assert.Nil(t, FindBlockedMatch("papers scattered everywhere", prefs))

	match := FindBlockedMatch("the cat sat down", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "cat", match.Term)
}

func TestFindBlockedMatch_SubstringOfToken(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("ass"),
	}

	assert.Nil(t, FindBlockedMatch("This is a class assignment", prefs))

	match := FindBlockedMatch("That was ass", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "ass", match.Term)
}

func TestFindBlockedMatch_CaseInsensitive(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("BadWord"),
	}

	for _, text := range []string{
		"badword here",
		"BADWORD here",
		"BaDwOrD here",
	} {
		match := FindBlockedMatch(text, prefs)
		require.NotNil(t, match, "text %q should match", text)
		assert.Equal(t, "badword", match.Term)
	}
}

func TestFindBlockedMatch_PunctuationIsSeparator(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("damn"),
	}

	match := FindBlockedMatch("Well... damn! That hurt.", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "damn", match.Term)

	// Punctuation in the term is stripped the same way.
	prefs[models.CategoryLanguage] = languagePref("d-a-m-n")
	assert.Nil(t, FindBlockedMatch("nothing here", prefs))
}

func TestFindBlockedMatch_MultiWordPhrase(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("oh my god"),
	}

	// All words present and adjacent.
	require.NotNil(t, FindBlockedMatch("oh my god that was close", prefs))

	// All words present but scattered: the bag-of-words policy still fires.
	// Stricter adjacency matching would reject this text; that behavior is
	// deliberately not implemented.
	require.NotNil(t, FindBlockedMatch("oh no, my god is testing me", prefs))

	// A missing component word means no match.
	assert.Nil(t, FindBlockedMatch("oh my, what a day", prefs))
}

func TestFindBlockedMatch_DisabledCategorySkipped(t *testing.T) {
	pref := languagePref("profanity")
	pref.Enabled = false
	prefs := map[string]models.Preference{
		models.CategoryLanguage: pref,
	}

	assert.Nil(t, FindBlockedMatch("This contains profanity in it", prefs))
}

func TestFindBlockedMatch_CustomWordsUnioned(t *testing.T) {
	pref := languagePref("preset")
	pref.CustomWords = []string{"mine"}
	prefs := map[string]models.Preference{
		models.CategoryLanguage: pref,
	}

	match := FindBlockedMatch("that one is mine", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "mine", match.Term)
}

func TestFindBlockedMatch_BlankTermsSkipped(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("", "   ", "real"),
	}

	// Blank terms never match anything, including empty-ish text.
	assert.Nil(t, FindBlockedMatch("plain harmless text", prefs))

	match := FindBlockedMatch("the real deal", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "real", match.Term)
}

func TestFindBlockedMatch_EmptyText(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("anything"),
	}

	assert.Nil(t, FindBlockedMatch("", prefs))
	assert.Nil(t, FindBlockedMatch("...!!!", prefs))
}

func TestFindBlockedMatch_CategoryOrderDeterministic(t *testing.T) {
	// "target" appears in two categories; the sorted-first category must win
	// every time.
	prefs := map[string]models.Preference{
		models.CategoryViolence: {Category: models.CategoryViolence, Enabled: true, Action: models.ActionFastForward, BlockedWords: []string{"target"}},
		models.CategoryLanguage: {Category: models.CategoryLanguage, Enabled: true, Action: models.ActionMute, BlockedWords: []string{"target"}},
	}

	for i := 0; i < 20; i++ {
		match := FindBlockedMatch("acquired the target", prefs)
		require.NotNil(t, match)
		assert.Equal(t, models.CategoryLanguage, match.Category)
	}
}

func TestFindBlockedMatch_AccentedTextTransliterated(t *testing.T) {
	prefs := map[string]models.Preference{
		models.CategoryLanguage: languagePref("merde"),
	}

	match := FindBlockedMatch("mérde alors", prefs)
	require.NotNil(t, match)
	assert.Equal(t, "merde", match.Term)
}
