package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vecna/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKey(t *testing.T) {
	t.Setenv("VECNA_SERVICES_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "vecna")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "vecna.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Services.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Services.APIKey)
	}
	if cfg.Taxonomy.ConfidenceThreshold != 0.7 {
		t.Fatalf("unexpected default threshold %v", cfg.Taxonomy.ConfidenceThreshold)
	}
	if cfg.Lease().Minutes() != 15 {
		t.Fatalf("unexpected default lease %s", cfg.Lease())
	}
	if len(cfg.Pipeline.ContentTypes) != 3 {
		t.Fatalf("unexpected default content types %v", cfg.Pipeline.ContentTypes)
	}
}

func TestLoadFileOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vecna.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": filepath.Join(dir, "data"),
			"log_dir":  filepath.Join(dir, "logs"),
		},
		"services": map[string]any{
			"parse_url":    "https://parse.example.com/",
			"generate_url": "https://gen.example.com",
			"api_key":      " file-key ",
		},
		"pipeline": map[string]any{
			"quality_tier":  "PREMIUM",
			"content_types": []string{"Rules", "rules", " setup "},
		},
		"taxonomy": map[string]any{
			"confidence_threshold": 0.85,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be loaded, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Services.ParseURL != "https://parse.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Services.ParseURL)
	}
	if cfg.Services.APIKey != "file-key" {
		t.Fatalf("unexpected api key %q", cfg.Services.APIKey)
	}
	if cfg.Pipeline.QualityTier != "premium" {
		t.Fatalf("unexpected tier %q", cfg.Pipeline.QualityTier)
	}
	if strings.Join(cfg.Pipeline.ContentTypes, ",") != "rules,setup" {
		t.Fatalf("unexpected content types %v", cfg.Pipeline.ContentTypes)
	}
	if cfg.Taxonomy.ConfidenceThreshold != 0.85 {
		t.Fatalf("unexpected threshold %v", cfg.Taxonomy.ConfidenceThreshold)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threshold", func(c *config.Config) { c.Taxonomy.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"kind", func(c *config.Config) { c.Taxonomy.Kinds = []string{"flavor"} }, "taxonomy.kinds"},
		{"tier", func(c *config.Config) { c.Pipeline.QualityTier = "gold" }, "quality_tier"},
		{"content type", func(c *config.Config) { c.Pipeline.ContentTypes = []string{"lore"} }, "content_types"},
		{"parse url", func(c *config.Config) { c.Services.ParseURL = "ftp://x" }, "parse_url"},
		{"generate url", func(c *config.Config) { c.Services.GenerateURL = "" }, "generate_url"},
		{"quality", func(c *config.Config) { c.Quality.CompleteThreshold = 0 }, "complete_threshold"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "not a url" }, "ntfy_topic"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateSampleRoundTripsThroughLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Workflow.MaxParallel != config.Default().Workflow.MaxParallel {
		t.Fatalf("unexpected max parallel %d", cfg.Workflow.MaxParallel)
	}
}
