package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"isweep/handlers"
)

// corsMiddleware handles CORS for API routes. The frontend runs as a browser
// extension, so every origin is allowed.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	healthHandler *handlers.HealthHandler,
	preferencesHandler *handlers.PreferencesHandler,
	eventsHandler *handlers.EventsHandler,
	audioHandler *handlers.AudioHandler,
	usersHandler *handlers.UsersHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler.Options).Methods(http.MethodOptions)

	// Single-rule save keeps the legacy body shape (full preference with
	// userId and category inline).
	api.HandleFunc("/preferences", preferencesHandler.Save).Methods(http.MethodPost)
	api.HandleFunc("/preferences", preferencesHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/users/{userID}/preferences", preferencesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/preferences", preferencesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/preferences/bulk", preferencesHandler.SaveBulk).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/preferences/bulk", preferencesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/preferences/{category}", preferencesHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/preferences/{category}", preferencesHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/preferences/{category}", preferencesHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/event", eventsHandler.Decide).Methods(http.MethodPost)
	api.HandleFunc("/event", eventsHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/audio/chunk", audioHandler.Chunk).Methods(http.MethodPost)
	api.HandleFunc("/audio/chunk", audioHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/audio/sessions/{userID}/{tabID}", audioHandler.ClearSession).Methods(http.MethodDelete)
	api.HandleFunc("/audio/sessions/{userID}/{tabID}", audioHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users", usersHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}", usersHandler.Rename).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}", usersHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin", usersHandler.SetPin).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/pin", usersHandler.ClearPin).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/pin", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin/verify", usersHandler.VerifyPin).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/pin/verify", handleOptions).Methods(http.MethodOptions)
}
