package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"showlog/config"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	m := config.NewManager(path)

	settings, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Server.Port != 7171 {
		t.Errorf("expected default port 7171, got %d", settings.Server.Port)
	}
	if settings.Catalog.BaseURL != "https://api.tvmaze.com" {
		t.Errorf("unexpected catalog url %q", settings.Catalog.BaseURL)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults must be written to disk: %v", err)
	}
}

func TestLoadFillsGapsInExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"server": {"host": "127.0.0.1"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := config.NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Server.Host != "127.0.0.1" {
		t.Errorf("explicit value lost: %q", settings.Server.Host)
	}
	if settings.Server.Port != 7171 {
		t.Errorf("missing port must default, got %d", settings.Server.Port)
	}
	if settings.Catalog.SearchDebounceMs != 500 {
		t.Errorf("missing debounce must default, got %d", settings.Catalog.SearchDebounceMs)
	}
	if settings.Storage.Directory != "data" {
		t.Errorf("missing storage dir must default, got %q", settings.Storage.Directory)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := config.NewManager(path)

	settings := config.DefaultSettings()
	settings.Sync.Endpoint = "https://sync.example.com"
	settings.Sync.APIKey = "key-1"
	if err := m.Save(settings); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != settings {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, settings)
	}
}
