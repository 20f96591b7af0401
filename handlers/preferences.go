package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"isweep/models"
	"isweep/services/preferences"
)

type preferenceService interface {
	Save(pref models.Preference) error
	SaveBulk(userID string, updates map[string]models.PreferenceUpdate) error
	Get(userID, category string) (*models.Preference, error)
	All(userID string) (map[string]models.Preference, error)
	Delete(userID, category string) error
}

var _ preferenceService = (*preferences.Service)(nil)

// PreferencesHandler exposes filter-rule CRUD to the frontend.
type PreferencesHandler struct {
	Service preferenceService
	Users   userService
}

func NewPreferencesHandler(service preferenceService, users userService) *PreferencesHandler {
	return &PreferencesHandler{
		Service: service,
		Users:   users,
	}
}

// Save creates or overwrites a single preference. The body carries the full
// rule including userId and category.
func (h *PreferencesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var pref models.Preference
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&pref); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Save(pref); err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "saved",
		"preference": pref,
	})
}

// SaveBulk upserts several categories for one user in a single transaction.
func (h *PreferencesHandler) SaveBulk(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var updates map[string]models.PreferenceUpdate
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&updates); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(updates) == 0 {
		http.Error(w, "no preferences provided", http.StatusBadRequest)
		return
	}

	if err := h.Service.SaveBulk(userID, updates); err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	prefs, err := h.Service.All(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}

// List returns the user's effective preference map, defaults included.
func (h *PreferencesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	prefs, err := h.Service.All(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}

// Get returns the stored preference for one category, or an empty object if
// the user has not customized it.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	category := strings.TrimSpace(vars["category"])
	if category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	pref, err := h.Service.Get(userID, category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if pref == nil {
		json.NewEncoder(w).Encode(map[string]any{})
		return
	}
	json.NewEncoder(w).Encode(pref)
}

// Delete removes a stored preference, reverting the category to its default.
func (h *PreferencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	category := strings.TrimSpace(vars["category"])
	if category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Delete(userID, category); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PreferencesHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *PreferencesHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userID"])

	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}

	if h.Users != nil && !h.Users.Exists(userID) {
		http.Error(w, "user not found", http.StatusNotFound)
		return "", false
	}

	return userID, true
}

func isValidationError(err error) bool {
	return errors.Is(err, preferences.ErrUserIDRequired) ||
		errors.Is(err, preferences.ErrCategoryRequired) ||
		errors.Is(err, preferences.ErrInvalidAction)
}
