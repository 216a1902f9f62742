package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Angelos.URL != "http://localhost:9007" {
		t.Errorf("unexpected angelos default %q", cfg.Angelos.URL)
	}
	if cfg.Angelos.TimeoutSeconds != 30 {
		t.Errorf("unexpected angelos timeout %d", cfg.Angelos.TimeoutSeconds)
	}
	if cfg.Parser.FetchTimeoutSeconds != 10 {
		t.Errorf("unexpected fetch timeout %d", cfg.Parser.FetchTimeoutSeconds)
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `server:
  host: 0.0.0.0
  port: 9000
storage:
  database_path: ./data/db.sqlite
  upload_dir: /var/uploads
angelos:
  url: https://angelos.internal
  secret: s3cret
  timeout_seconds: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("got port %d", cfg.Server.Port)
	}
	if cfg.Angelos.Secret != "s3cret" {
		t.Errorf("got secret %q", cfg.Angelos.Secret)
	}
	// relative ./ paths resolve against the config directory
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data/db.sqlite") {
		t.Errorf("got database path %q", cfg.Storage.DatabasePath)
	}
	if cfg.Storage.UploadDir != "/var/uploads" {
		t.Errorf("absolute paths should be untouched, got %q", cfg.Storage.UploadDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
