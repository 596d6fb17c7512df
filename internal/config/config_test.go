package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "festagenda.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Listen != DefaultListen || cfg.Timezone != DefaultTimezone || !cfg.Strict {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Path != filepath.Join(dir, "nested", "festivals.csv") {
		t.Errorf("default source not resolved: %+v", cfg.Sources)
	}
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "festagenda.yaml")
	data := `
strict: false
sources:
  - name: Summer
    path: data/summer.csv
  - url: https://example.com/feed.ics
    format: ICS
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Listen", cfg.Listen, DefaultListen},
		{"RefreshCron", cfg.RefreshCron, DefaultRefreshCron},
		{"HorizonDays", cfg.HorizonDays, DefaultHorizonDays},
		{"Strict", cfg.Strict, false},
		{"Sources", len(cfg.Sources), 2},
		{"Source0.ID", cfg.Sources[0].ID, "Summer"},
		{"Source0.Format", cfg.Sources[0].Format, "records"},
		{"Source0.Path", cfg.Sources[0].Path, filepath.Join(dir, "data", "summer.csv")},
		{"Source1.ID", cfg.Sources[1].ID, "source-2"},
		{"Source1.Format", cfg.Sources[1].Format, "ics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_RejectsInvalidSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festagenda.yaml")
	data := `
sources:
  - id: nothing
  - id: odd
    path: x.csv
    format: xml
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() returned nil error for invalid sources")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") returned nil error")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festagenda.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9090"
	cfg.Watch = true
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	cfg.Sources = []SourceConfig{{ID: "abs", Path: "/srv/festivals.csv", Format: "records"}}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() returned unexpected error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if got.Listen != "0.0.0.0:9090" || !got.Watch {
		t.Errorf("got %+v", got)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("BasicAuth = %+v", got.BasicAuth)
	}
	if got.Sources[0].Path != "/srv/festivals.csv" {
		t.Errorf("absolute path rewritten to %q", got.Sources[0].Path)
	}
}

func TestSave_Errors(t *testing.T) {
	if err := Save("", DefaultConfig()); err == nil {
		t.Error("Save() with empty path returned nil error")
	}
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("Save() with nil config returned nil error")
	}
}

func TestLoad_RefreshCanBeDisabled(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"omitted", "", DefaultRefreshCron},
		{"empty", `refresh: ""`, ""},
		{"off", "refresh: off", ""},
		{"OFF", "refresh: OFF", ""},
		{"custom", `refresh: "*/15 * * * *"`, "*/15 * * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "festagenda.yaml")
			if err := os.WriteFile(path, []byte("strict: true\n"+tt.line+"\n"), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			if cfg.RefreshCron != tt.want {
				t.Errorf("RefreshCron = %q, want %q", cfg.RefreshCron, tt.want)
			}
		})
	}
}
