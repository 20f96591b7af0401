package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"isweep/api"
	"isweep/config"
	"isweep/handlers"
	"isweep/internal/database"
	"isweep/services/preferences"
	"isweep/services/transcribe"
	"isweep/services/users"
)

func main() {

	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🧹 ISweep Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("ISWEEP_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Open the preferences database and apply migrations
	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	preferenceService, err := preferences.NewService(db)
	if err != nil {
		log.Fatalf("failed to initialise preferences: %v", err)
	}

	userService, err := users.NewService(settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to initialise users: %v", err)
	}

	// The transcription pipeline is optional: without an ASR endpoint the
	// audio routes answer 503 and subtitle-based filtering still works.
	var transcribeService *transcribe.Service
	if settings.ASR.Endpoint != "" {
		transcriber := transcribe.NewHTTPTranscriber(settings.ASR.Endpoint, time.Duration(settings.ASR.TimeoutSeconds)*time.Second)
		transcribeService, err = transcribe.NewService(transcriber, preferenceService, settings.ASR.ProcessEveryChunks, settings.ASR.MaxBufferChunks)
		if err != nil {
			log.Fatalf("failed to initialise transcription: %v", err)
		}
		log.Printf("transcription enabled via %s", settings.ASR.Endpoint)
	} else {
		log.Printf("warning: no ASR endpoint configured; audio transcription is disabled")
	}

	healthHandler := handlers.NewHealthHandler()
	preferencesHandler := handlers.NewPreferencesHandler(preferenceService, userService)
	eventsHandler := handlers.NewEventsHandler(preferenceService)
	var audioHandler *handlers.AudioHandler
	if transcribeService != nil {
		audioHandler = handlers.NewAudioHandler(transcribeService)
	} else {
		audioHandler = handlers.NewAudioHandler(nil)
	}
	usersHandler := handlers.NewUsersHandler(userService)

	r := mux.NewRouter()
	api.Register(r, healthHandler, preferencesHandler, eventsHandler, audioHandler, usersHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
