package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizePipeline()
	c.normalizeTaxonomy()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServices() {
	c.Services.ParseURL = strings.TrimRight(strings.TrimSpace(c.Services.ParseURL), "/")
	c.Services.GenerateURL = strings.TrimRight(strings.TrimSpace(c.Services.GenerateURL), "/")
	c.Services.APIKey = strings.TrimSpace(c.Services.APIKey)
	if c.Services.APIKey == "" {
		if value, ok := os.LookupEnv(serviceAPIKeyEnv); ok {
			c.Services.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Services.TimeoutSeconds <= 0 {
		c.Services.TimeoutSeconds = defaultServiceTimeoutSeconds
	}
	if c.Services.RetryAttempts <= 0 {
		c.Services.RetryAttempts = 1
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.LeaseSeconds <= 0 {
		c.Pipeline.LeaseSeconds = defaultLeaseSeconds
	}
	c.Pipeline.QualityTier = strings.ToLower(strings.TrimSpace(c.Pipeline.QualityTier))
	if c.Pipeline.QualityTier == "" {
		c.Pipeline.QualityTier = defaultQualityTier
	}
	c.Pipeline.ContentTypes = normalizeList(c.Pipeline.ContentTypes)
	if len(c.Pipeline.ContentTypes) == 0 {
		c.Pipeline.ContentTypes = append([]string(nil), defaultContentTypes...)
	}
}

func (c *Config) normalizeTaxonomy() {
	c.Taxonomy.Kinds = normalizeList(c.Taxonomy.Kinds)
	if len(c.Taxonomy.Kinds) == 0 {
		c.Taxonomy.Kinds = append([]string(nil), defaultTaxonomyKinds...)
	}
	if c.Taxonomy.SuggestionExpiryDays < 0 {
		c.Taxonomy.SuggestionExpiryDays = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ReconcileInterval <= 0 {
		c.Workflow.ReconcileInterval = defaultReconcileInterval
	}
	if c.Workflow.MaxParallel <= 0 {
		c.Workflow.MaxParallel = 1
	}
	if c.Workflow.MaxSteps <= 0 {
		c.Workflow.MaxSteps = defaultMaxSteps
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
