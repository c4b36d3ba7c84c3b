package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains storage locations.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Services contains connection settings for the parse and generate services.
type Services struct {
	ParseURL       string `toml:"parse_url"`
	GenerateURL    string `toml:"generate_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Pipeline contains step executor settings.
type Pipeline struct {
	// LeaseSeconds bounds how long an entity may sit in a processing state
	// before the reconciler demotes it.
	LeaseSeconds int      `toml:"lease_seconds"`
	QualityTier  string   `toml:"quality_tier"`
	ContentTypes []string `toml:"content_types"`
}

// Taxonomy contains suggestion auto-acceptance policy.
type Taxonomy struct {
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	Kinds               []string `toml:"kinds"`

	// SuggestionExpiryDays rejects below-threshold pending suggestions older
	// than this many days during reconciliation. Zero disables expiry.
	SuggestionExpiryDays int `toml:"suggestion_expiry_days"`
}

// Quality contains completeness gate settings.
type Quality struct {
	CompleteThreshold float64 `toml:"complete_threshold"`
}

// Workflow contains worker timing and fan-out limits.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	ReconcileInterval int `toml:"reconcile_interval"`
	MaxParallel       int `toml:"max_parallel"`
	MaxSteps          int `toml:"max_steps"`
}

// Notifications contains ntfy settings for reviewer alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Vecna.
//
// Configuration sections by subsystem:
//   - Paths: database and log directories
//   - Services: parse/generate endpoints, API key, timeouts
//   - Pipeline: processing leases, quality tier, content types
//   - Taxonomy: suggestion confidence threshold and kinds
//   - Quality: completeness gate threshold
//   - Workflow: worker polling and fan-out
//   - Notifications: ntfy alerts for entities that need a human
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Services      Services      `toml:"services"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Taxonomy      Taxonomy      `toml:"taxonomy"`
	Quality       Quality       `toml:"quality"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathUnexpanded)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFilename)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite catalog location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, defaultQueueDatabaseFilename)
}

// WorkerLockPath returns the lock file guarding the worker loop.
func (c *Config) WorkerLockPath() string {
	return filepath.Join(c.Paths.DataDir, defaultWorkerLockFilename)
}

// LogFilePath returns the persistent log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, defaultLogFilename)
}

// ServiceTimeout returns the per-call timeout applied to external services.
func (c *Config) ServiceTimeout() time.Duration {
	return time.Duration(c.Services.TimeoutSeconds) * time.Second
}

// Lease returns how long a processing state may be held.
func (c *Config) Lease() time.Duration {
	return time.Duration(c.Pipeline.LeaseSeconds) * time.Second
}

// SuggestionExpiry returns the pending suggestion expiry window, zero when disabled.
func (c *Config) SuggestionExpiry() time.Duration {
	return time.Duration(c.Taxonomy.SuggestionExpiryDays) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
