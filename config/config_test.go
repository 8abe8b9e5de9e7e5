package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nickyhof/BlockIndex/collection"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/blockindex.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.BlockCapacity != collection.DefaultCapacity {
		t.Errorf("default block_capacity: got %d", cfg.Index.BlockCapacity)
	}
	if cfg.Storage.Path != "" {
		t.Errorf("default storage path should be empty, got %s", cfg.Storage.Path)
	}
	if cfg.Identity.Name != "BlockIndex" {
		t.Errorf("default identity: got %s", cfg.Identity.Name)
	}
	if level, _ := cfg.LogLevel(); level != logrus.InfoLevel {
		t.Errorf("default log level: got %s", level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
index:
  block_capacity: 64
storage:
  path: "data"
  git_url: "https://example.com/repo.git"
identity:
  name: "Alice"
remote:
  region: "eu-west-1"
  endpoint: "http://localhost:9000"
log:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.BlockCapacity != 64 {
		t.Errorf("block_capacity: got %d", cfg.Index.BlockCapacity)
	}
	if cfg.Storage.Path != "data" || cfg.Storage.GitURL != "https://example.com/repo.git" {
		t.Errorf("storage: got %+v", cfg.Storage)
	}
	if cfg.Identity.Name != "Alice" {
		t.Errorf("identity name: got %s", cfg.Identity.Name)
	}
	if cfg.Identity.Email != "blockindex@localhost" {
		t.Errorf("identity email should keep its default, got %s", cfg.Identity.Email)
	}
	if cfg.Remote.Region != "eu-west-1" || cfg.Remote.Endpoint != "http://localhost:9000" {
		t.Errorf("remote: got %+v", cfg.Remote)
	}
	if level, _ := cfg.LogLevel(); level != logrus.DebugLevel {
		t.Errorf("log level: got %s", level)
	}
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll("configs", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join("configs", "blockindex.yaml"), []byte("index:\n  block_capacity: 1\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.BlockCapacity != collection.MinCapacity {
		t.Errorf("block_capacity should be raised to %d, got %d", collection.MinCapacity, cfg.Index.BlockCapacity)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("index: [unterminated"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	level := filepath.Join(dir, "level.yaml")
	os.WriteFile(level, []byte("log:\n  level: loud\n"), 0644)
	if _, err := Load(level); err == nil {
		t.Error("expected error for unknown log level")
	}
}
