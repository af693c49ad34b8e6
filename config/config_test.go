package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	// WHAT: The daemon runs on defaults when no config file exists.
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8774" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.DBPath != "quickwhats.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	// WHAT: File values override defaults.
	path := filepath.Join(t.TempDir(), "quickwhats.yaml")
	data := `
listen: ":9000"
db_path: /var/lib/quickwhats/state.db
log:
  level: debug
browser:
  enabled: true
  remote: ws://localhost:9222
detect:
  restricted_hosts:
    - img.corp.example
mcp:
  stdio: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.DBPath != "/var/lib/quickwhats/state.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if !cfg.Browser.Enabled || cfg.Browser.Remote != "ws://localhost:9222" {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if len(cfg.Detect.RestrictedHosts) != 1 || cfg.Detect.RestrictedHosts[0] != "img.corp.example" {
		t.Errorf("restricted hosts = %v", cfg.Detect.RestrictedHosts)
	}
	if !cfg.MCP.Stdio {
		t.Error("mcp stdio not set")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// WHAT: Environment variables beat file values for deployment knobs.
	path := filepath.Join(t.TempDir(), "quickwhats.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUICKWHATS_LISTEN", ":7000")
	t.Setenv("QUICKWHATS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7000" {
		t.Errorf("listen = %q, want the env value", cfg.Listen)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	// WHAT: A broken config file is an error, not silent defaults.
	path := filepath.Join(t.TempDir(), "quickwhats.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
