package preferences

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"isweep/models"
)

var (
	ErrDatabaseRequired = errors.New("database handle not provided")
	ErrUserIDRequired   = errors.New("user id is required")
	ErrCategoryRequired = errors.New("category is required")
	ErrInvalidAction    = errors.New("invalid action")
)

// Service persists per-(user, category) filter preferences in sqlite and
// fills in the built-in default catalog for categories the user has not
// customized.
type Service struct {
	db *sql.DB
}

// NewService constructs a preference store backed by an open database handle.
func NewService(db *sql.DB) (*Service, error) {
	if db == nil {
		return nil, ErrDatabaseRequired
	}
	return &Service{db: db}, nil
}

// Save creates or fully overwrites the preference for (pref.UserID,
// pref.Category).
func (s *Service) Save(pref models.Preference) error {
	userID := strings.TrimSpace(pref.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}
	category := strings.TrimSpace(strings.ToLower(pref.Category))
	if category == "" {
		return ErrCategoryRequired
	}
	if _, ok := models.ParseAction(string(pref.Action)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAction, pref.Action)
	}

	blocked, custom, packs, err := encodeTermColumns(pref)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO preferences (user_id, category, enabled, action, duration_seconds, blocked_words, custom_words, selected_packs, caption_offset_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, category) DO UPDATE SET
			enabled = excluded.enabled,
			action = excluded.action,
			duration_seconds = excluded.duration_seconds,
			blocked_words = excluded.blocked_words,
			custom_words = excluded.custom_words,
			selected_packs = excluded.selected_packs,
			caption_offset_ms = excluded.caption_offset_ms,
			updated_at = CURRENT_TIMESTAMP`,
		userID, category, pref.Enabled, string(pref.Action), pref.DurationSeconds,
		blocked, custom, packs, pref.CaptionOffsetMs,
	)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// SaveBulk upserts multiple categories for a user in one transaction. Each
// update is applied on top of the stored preference for that category, or the
// category default when nothing is stored yet. Unknown categories are
// persisted as-is for forward compatibility.
func (s *Service) SaveBulk(userID string, updates map[string]models.PreferenceUpdate) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	// Validate everything before touching the database.
	for category, update := range updates {
		if strings.TrimSpace(category) == "" {
			return ErrCategoryRequired
		}
		if update.Action != "" {
			if _, ok := models.ParseAction(update.Action); !ok {
				return fmt.Errorf("%w: %q", ErrInvalidAction, update.Action)
			}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin bulk save: %w", err)
	}
	defer tx.Rollback()

	for category, update := range updates {
		category = strings.TrimSpace(strings.ToLower(category))

		base, err := s.getTx(tx, userID, category)
		if err != nil {
			return err
		}
		if base == nil {
			base = defaultForCategory(userID, category)
		}

		pref := applyUpdate(*base, update)
		blocked, custom, packs, err := encodeTermColumns(pref)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`
			INSERT INTO preferences (user_id, category, enabled, action, duration_seconds, blocked_words, custom_words, selected_packs, caption_offset_ms, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, category) DO UPDATE SET
				enabled = excluded.enabled,
				action = excluded.action,
				duration_seconds = excluded.duration_seconds,
				blocked_words = excluded.blocked_words,
				custom_words = excluded.custom_words,
				selected_packs = excluded.selected_packs,
				caption_offset_ms = excluded.caption_offset_ms,
				updated_at = CURRENT_TIMESTAMP`,
			userID, category, pref.Enabled, string(pref.Action), pref.DurationSeconds,
			blocked, custom, packs, pref.CaptionOffsetMs,
		); err != nil {
			return fmt.Errorf("save preference %q: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk save: %w", err)
	}
	return nil
}

// Get returns the stored preference for (userID, category), or nil when the
// user has not customized that category.
func (s *Service) Get(userID, category string) (*models.Preference, error) {
	userID = strings.TrimSpace(userID)
	category = strings.TrimSpace(strings.ToLower(category))
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if category == "" {
		return nil, ErrCategoryRequired
	}

	row := s.db.QueryRow(`
		SELECT user_id, category, enabled, action, duration_seconds, blocked_words, custom_words, selected_packs, caption_offset_ms
		FROM preferences WHERE user_id = ? AND category = ?`, userID, category)

	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return pref, nil
}

// All returns the effective preference map for a user: every stored category
// plus a synthesized default for each built-in category the user has not
// customized. Stored rows are never overwritten by defaults.
func (s *Service) All(userID string) (map[string]models.Preference, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rows, err := s.db.Query(`
		SELECT user_id, category, enabled, action, duration_seconds, blocked_words, custom_words, selected_packs, caption_offset_ms
		FROM preferences WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.Preference)
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("list preferences: %w", err)
		}
		result[pref.Category] = *pref
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	for _, def := range models.DefaultPreferences(userID) {
		if _, customized := result[def.Category]; !customized {
			result[def.Category] = def
		}
	}

	return result, nil
}

// Delete removes a stored preference, reverting the category to its default.
func (s *Service) Delete(userID, category string) error {
	userID = strings.TrimSpace(userID)
	category = strings.TrimSpace(strings.ToLower(category))
	if userID == "" {
		return ErrUserIDRequired
	}
	if category == "" {
		return ErrCategoryRequired
	}

	if _, err := s.db.Exec(`DELETE FROM preferences WHERE user_id = ? AND category = ?`, userID, category); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

func (s *Service) getTx(tx *sql.Tx, userID, category string) (*models.Preference, error) {
	row := tx.QueryRow(`
		SELECT user_id, category, enabled, action, duration_seconds, blocked_words, custom_words, selected_packs, caption_offset_ms
		FROM preferences WHERE user_id = ? AND category = ?`, userID, category)

	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference %q: %w", category, err)
	}
	return pref, nil
}

// defaultForCategory returns the built-in rule for a category, or a disabled
// no-op rule for categories outside the default catalog.
func defaultForCategory(userID, category string) *models.Preference {
	for _, def := range models.DefaultPreferences(userID) {
		if def.Category == category {
			d := def
			return &d
		}
	}
	return &models.Preference{
		UserID:          userID,
		Category:        category,
		Enabled:         true,
		Action:          models.ActionNone,
		BlockedWords:    []string{},
		CustomWords:     []string{},
		CaptionOffsetMs: models.DefaultCaptionOffsetMs,
	}
}

func applyUpdate(base models.Preference, update models.PreferenceUpdate) models.Preference {
	if update.Enabled != nil {
		base.Enabled = *update.Enabled
	}
	if update.Action != "" {
		base.Action = models.Action(update.Action)
	}
	if update.DurationSeconds != nil {
		base.DurationSeconds = *update.DurationSeconds
	}
	if update.BlockedWords != nil {
		base.BlockedWords = update.BlockedWords
	}
	if update.CustomWords != nil {
		base.CustomWords = update.CustomWords
	}
	if update.SelectedPacks != nil {
		base.SelectedPacks = update.SelectedPacks
	}
	if update.CaptionOffsetMs != nil {
		base.CaptionOffsetMs = *update.CaptionOffsetMs
	}
	return base
}

func encodeTermColumns(pref models.Preference) (blocked, custom, packs string, err error) {
	blockedBytes, err := json.Marshal(orEmpty(pref.BlockedWords))
	if err != nil {
		return "", "", "", fmt.Errorf("encode blocked words: %w", err)
	}
	customBytes, err := json.Marshal(orEmpty(pref.CustomWords))
	if err != nil {
		return "", "", "", fmt.Errorf("encode custom words: %w", err)
	}
	packsMap := pref.SelectedPacks
	if packsMap == nil {
		packsMap = map[string]bool{}
	}
	packBytes, err := json.Marshal(packsMap)
	if err != nil {
		return "", "", "", fmt.Errorf("encode selected packs: %w", err)
	}
	return string(blockedBytes), string(customBytes), string(packBytes), nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreference(row rowScanner) (*models.Preference, error) {
	var (
		pref    models.Preference
		action  string
		blocked string
		custom  string
		packs   string
	)
	if err := row.Scan(&pref.UserID, &pref.Category, &pref.Enabled, &action, &pref.DurationSeconds, &blocked, &custom, &packs, &pref.CaptionOffsetMs); err != nil {
		return nil, err
	}
	pref.Action = models.Action(action)

	// Malformed JSON columns degrade to empty lists rather than failing the
	// whole lookup.
	if err := json.Unmarshal([]byte(blocked), &pref.BlockedWords); err != nil || pref.BlockedWords == nil {
		pref.BlockedWords = []string{}
	}
	if err := json.Unmarshal([]byte(custom), &pref.CustomWords); err != nil || pref.CustomWords == nil {
		pref.CustomWords = []string{}
	}
	if err := json.Unmarshal([]byte(packs), &pref.SelectedPacks); err != nil || pref.SelectedPacks == nil {
		pref.SelectedPacks = map[string]bool{}
	}

	return &pref, nil
}
