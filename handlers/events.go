package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"isweep/models"
	"isweep/services/rules"
)

// EventsHandler resolves decision requests from the player.
type EventsHandler struct {
	Prefs rules.PreferenceLookup
}

func NewEventsHandler(prefs rules.PreferenceLookup) *EventsHandler {
	return &EventsHandler{Prefs: prefs}
}

// Decide answers what the player should do about one event. Input validation
// lives here; the engine itself never fails.
func (h *EventsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&event); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(event.UserID) == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	if event.Confidence != nil && (*event.Confidence < 0 || *event.Confidence > 1) {
		http.Error(w, "confidence must be between 0 and 1", http.StatusBadRequest)
		return
	}

	decision := rules.Decide(event, h.Prefs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decision)
}

func (h *EventsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
