package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses a full config", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bridge.yaml", `
engine:
  path: /engines/stockfish
  name: Stockfish 17
  options:
    Threads: 4
    Hash: "256"
    Ponder: true
default_think_time: 2000
log_level: debug
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Engine.Path != "/engines/stockfish" {
			t.Errorf("Expected engine path '/engines/stockfish', got %q", cfg.Engine.Path)
		}
		if cfg.Engine.Name != "Stockfish 17" {
			t.Errorf("Expected engine name 'Stockfish 17', got %q", cfg.Engine.Name)
		}
		if cfg.DefaultThinkTime != 2000 {
			t.Errorf("Expected think time 2000, got %d", cfg.DefaultThinkTime)
		}
		if cfg.ThinkTime() != 2*time.Second {
			t.Errorf("Expected 2s duration, got %v", cfg.ThinkTime())
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Expected log level debug, got %q", cfg.LogLevel)
		}

		// Scalar option values are carried as strings regardless of their
		// YAML type.
		want := map[string]string{"Threads": "4", "Hash": "256", "Ponder": "true"}
		for name, value := range want {
			if cfg.Engine.Options[name] != value {
				t.Errorf("Expected option %s=%q, got %q", name, value, cfg.Engine.Options[name])
			}
		}
	})

	t.Run("applies defaults for omitted fields", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bridge.yaml", `
engine:
  path: /engines/stockfish
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.DefaultThinkTime != 1000 {
			t.Errorf("Expected default think time 1000, got %d", cfg.DefaultThinkTime)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("Expected default log level info, got %q", cfg.LogLevel)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bridge.yaml", "engine: [unbalanced")
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown log level", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bridge.yaml", "log_level: loud")
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("negative think time", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bridge.yaml", "default_think_time: -5")
		_, err := Load(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoadFirst(t *testing.T) {
	t.Run("first present file wins", func(t *testing.T) {
		dir := t.TempDir()
		first := writeConfig(t, dir, "first.yaml", "default_think_time: 500")
		second := writeConfig(t, dir, "second.yaml", "default_think_time: 900")

		cfg, path, err := loadFirst([]string{
			filepath.Join(dir, "missing.yaml"),
			first,
			second,
		})
		if err != nil {
			t.Fatalf("loadFirst failed: %v", err)
		}
		if path != first {
			t.Errorf("Expected path %q, got %q", first, path)
		}
		if cfg.DefaultThinkTime != 500 {
			t.Errorf("Expected think time 500, got %d", cfg.DefaultThinkTime)
		}
	})

	t.Run("falls back to built-in defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, path, err := loadFirst([]string{
			filepath.Join(dir, "a.yaml"),
			filepath.Join(dir, "b.yaml"),
		})
		if err != nil {
			t.Fatalf("loadFirst failed: %v", err)
		}
		if path != "" {
			t.Errorf("Expected empty path for built-in defaults, got %q", path)
		}
		if cfg.DefaultThinkTime != 1000 || cfg.LogLevel != "info" {
			t.Errorf("Expected built-in defaults, got %+v", cfg)
		}
	})

	t.Run("broken file aborts the search", func(t *testing.T) {
		dir := t.TempDir()
		broken := writeConfig(t, dir, "broken.yaml", "log_level: loud")
		good := writeConfig(t, dir, "good.yaml", "log_level: info")

		_, path, err := loadFirst([]string{broken, good})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("Expected ErrInvalidConfig, got %v", err)
		}
		if path != broken {
			t.Errorf("Expected the broken path to be reported, got %q", path)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	t.Run("writes a loadable starter config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "chess_uci_mcp.yaml")
		if err := WriteDefault(path); err != nil {
			t.Fatalf("WriteDefault failed: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Generated config does not load: %v", err)
		}
		if cfg.Engine.Path != "stockfish" {
			t.Errorf("Expected engine path 'stockfish', got %q", cfg.Engine.Path)
		}
		if cfg.Engine.Options["Threads"] != "1" {
			t.Errorf("Expected Threads option '1', got %q", cfg.Engine.Options["Threads"])
		}
		if cfg.DefaultThinkTime != 1000 {
			t.Errorf("Expected think time 1000, got %d", cfg.DefaultThinkTime)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chess_uci_mcp.yaml")
		if err := WriteDefault(path); err != nil {
			t.Fatalf("WriteDefault failed: %v", err)
		}
		err := WriteDefault(path)
		if err == nil {
			t.Fatal("Expected an error for an existing file")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("Expected 'already exists' in error, got: %v", err)
		}
	})
}

func TestDefaultLocations(t *testing.T) {
	locations := DefaultLocations()
	if len(locations) < 3 {
		t.Fatalf("Expected at least 3 locations, got %v", locations)
	}
	if locations[0] != "chess_uci_mcp.yaml" || locations[1] != "config.yaml" {
		t.Errorf("Expected working-directory files first, got %v", locations)
	}
	if locations[len(locations)-1] != "/etc/chess_uci_mcp/config.yaml" {
		t.Errorf("Expected the system path last, got %v", locations)
	}
}
