package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Database DatabaseSettings `json:"database"`
	Cache    CacheSettings    `json:"cache"`
	ASR      ASRSettings      `json:"asr"`
	Decision DecisionSettings `json:"decision"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseSettings defines where the preferences database lives.
type DatabaseSettings struct {
	Path string `json:"path"`
}

type CacheSettings struct {
	Directory string `json:"directory"`
}

// ASRSettings configures the speech-to-text pipeline.
type ASRSettings struct {
	Endpoint           string `json:"endpoint"`           // remote transcriber URL; empty disables transcription
	ProcessEveryChunks int    `json:"processEveryChunks"` // run ASR once this many chunks accumulate
	MaxBufferChunks    int    `json:"maxBufferChunks"`    // rolling buffer cap per session
	TimeoutSeconds     int    `json:"timeoutSeconds"`
}

// DecisionSettings exposes decision-engine constants for visibility. The
// confidence threshold is fixed in the engine; this mirrors it for clients
// that want to display it.
type DecisionSettings struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first boot.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8000},
		Database: DatabaseSettings{Path: "cache/isweep.db"},
		Cache:    CacheSettings{Directory: "cache"},
		ASR: ASRSettings{
			Endpoint:           "",
			ProcessEveryChunks: 3,
			MaxBufferChunks:    10,
			TimeoutSeconds:     30,
		},
		Decision: DecisionSettings{ConfidenceThreshold: 0.70},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk, creating the file with defaults when it does
// not exist yet. Settings introduced after the config file was written are
// backfilled with their defaults.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	dec := json.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for newly introduced settings when config predates them
	if s.Server.Port == 0 {
		s.Server.Port = 8000
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = "cache/isweep.db"
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = "cache"
	}
	if s.ASR.ProcessEveryChunks <= 0 {
		s.ASR.ProcessEveryChunks = 3
	}
	if s.ASR.MaxBufferChunks <= 0 {
		s.ASR.MaxBufferChunks = 10
	}
	if s.ASR.TimeoutSeconds <= 0 {
		s.ASR.TimeoutSeconds = 30
	}
	if s.Decision.ConfidenceThreshold <= 0 {
		s.Decision.ConfidenceThreshold = 0.70
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
