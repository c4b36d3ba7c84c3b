package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vecna/internal/catalog"
	"vecna/internal/config"
	"vecna/internal/services/contentgen"
	"vecna/internal/services/rulesparser"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/parse", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rulesparser.Response{Success: true})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(contentgen.Response{Success: true, Content: sampleContent()})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[services]
parse_url = %q
generate_url = %q
timeout_seconds = 5
retry_attempts = 1

[logging]
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), server.URL, server.URL)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// withStore opens the test catalog for seeding and closes it before the CLI
// runs.
func (e *cliTestEnv) withStore(t *testing.T, fn func(*catalog.Store)) {
	t.Helper()
	store, err := catalog.Open(e.cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	fn(store)
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func sampleContent() map[string]map[string]any {
	return map[string]map[string]any{
		"rules": {
			"overview":       "Build settlements and trade resources.",
			"turn_structure": []string{"roll", "trade", "build"},
			"win_conditions": "First to 10 victory points.",
			"actions":        []string{"build road", "build settlement"},
			"end_game":       "Ends immediately at 10 points.",
		},
		"setup": {
			"components_checklist": []string{"tiles", "cards"},
			"steps":                []string{"Lay out the island"},
			"player_count_changes": "Use the extension for 5-6 players.",
			"first_player":         "Highest roll starts.",
		},
		"reference": {
			"turn_summary": "Roll, trade, build.",
			"iconography":  "Resource icons on cards.",
		},
	}
}
