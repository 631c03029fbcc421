package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.7 {
		t.Errorf("threshold = %v, want 0.7", cfg.Pipeline.ConfidenceThreshold)
	}
	if !cfg.Pipeline.RequireValidation {
		t.Error("expected validation enabled by default")
	}
	if cfg.Server.Addr() != "0.0.0.0:8000" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  host: 127.0.0.1
pipeline:
  confidence_threshold: 0.6
  require_validation: false
cache:
  ttl: 5m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.6 {
		t.Errorf("threshold = %v, want 0.6", cfg.Pipeline.ConfidenceThreshold)
	}
	if cfg.Pipeline.RequireValidation {
		t.Error("expected validation disabled")
	}
	if cfg.Cache.TTL.Std() != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", cfg.Cache.TTL)
	}
	// Unspecified fields keep their defaults.
	if cfg.Search.MaxResults != 5 {
		t.Errorf("max results = %d, want default 5", cfg.Search.MaxResults)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-secret")
	t.Setenv("TAVILY_API_KEY", "tavily-secret")
	t.Setenv("AGENTGRAPH_PORT", "8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.APIKey != "gemini-secret" {
		t.Errorf("gateway key = %q", cfg.Gateway.APIKey)
	}
	if cfg.Search.APIKey != "tavily-secret" {
		t.Errorf("search key = %q", cfg.Search.APIKey)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestRuntimeMapping(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.ConfidenceThreshold = 0.8
	cfg.Search.MaxResults = 7

	rc := cfg.Runtime()
	if rc.ConfidenceThreshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", rc.ConfidenceThreshold)
	}
	if rc.MaxSearchResults != 7 {
		t.Errorf("max search results = %d, want 7", rc.MaxSearchResults)
	}
}
