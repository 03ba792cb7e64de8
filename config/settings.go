package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server  ServerSettings  `json:"server"`
	Catalog CatalogSettings `json:"catalog"`
	Storage StorageSettings `json:"storage"`
	Sync    SyncSettings    `json:"sync"`
	Log     LogConfig       `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type CatalogSettings struct {
	BaseURL          string `json:"baseUrl"`
	SearchDebounceMs int    `json:"searchDebounceMs"`
}

type StorageSettings struct {
	Directory string `json:"directory"`
}

// SyncSettings configures the optional remote mirror. An empty endpoint
// leaves sync disabled and the application fully local.
type SyncSettings struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey,omitempty"`
}

// LogConfig represents file logging with rotation. An empty file logs to
// stdout only.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 7171,
		},
		Catalog: CatalogSettings{
			BaseURL:          "https://api.tvmaze.com",
			SearchDebounceMs: 500,
		},
		Storage: StorageSettings{
			Directory: "data",
		},
		Sync: SyncSettings{},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxAge:     28,
			MaxBackups: 3,
			Compress:   true,
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

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing. Gaps in an
// existing file are filled with defaults so old config files keep working
// after new sections appear.
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

	data, err := os.ReadFile(m.path)
	if err != nil {
		return Settings{}, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Catalog.BaseURL == "" {
		settings.Catalog.BaseURL = DefaultSettings().Catalog.BaseURL
	}
	if settings.Catalog.SearchDebounceMs <= 0 {
		settings.Catalog.SearchDebounceMs = DefaultSettings().Catalog.SearchDebounceMs
	}
	if settings.Storage.Directory == "" {
		settings.Storage.Directory = DefaultSettings().Storage.Directory
	}
	if settings.Server.Port == 0 {
		settings.Server.Port = DefaultSettings().Server.Port
	}

	return settings, nil
}

// Save writes settings to disk, creating the parent directory if needed.
func (m *Manager) Save(s Settings) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, append(data, '\n'), 0o644)
}
