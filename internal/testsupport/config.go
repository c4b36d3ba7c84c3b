package testsupport

import (
	"path/filepath"
	"testing"

	"vecna/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Services.TimeoutSeconds = 5
	cfgVal.Services.RetryAttempts = 1
	cfgVal.Workflow.QueuePollInterval = 1
	cfgVal.Workflow.ReconcileInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServiceURLs points the parse and generate clients at test servers.
func WithServiceURLs(parseURL, generateURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Services.ParseURL = parseURL
		b.cfg.Services.GenerateURL = generateURL
	}
}

// WithConfidenceThreshold overrides the taxonomy auto-accept threshold.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Taxonomy.ConfidenceThreshold = threshold
	}
}

// WithMaxParallel overrides the family fan-out limit.
func WithMaxParallel(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxParallel = n
	}
}

// WithLeaseSeconds overrides the processing lease.
func WithLeaseSeconds(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.LeaseSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
