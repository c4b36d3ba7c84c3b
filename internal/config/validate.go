package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTaxonomy(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		if err := validateServiceURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServices() error {
	if err := validateServiceURL("services.parse_url", c.Services.ParseURL); err != nil {
		return err
	}
	if err := validateServiceURL("services.generate_url", c.Services.GenerateURL); err != nil {
		return err
	}
	return nil
}

func validateServiceURL(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if !slices.Contains(validQualityTiers, c.Pipeline.QualityTier) {
		return fmt.Errorf("pipeline.quality_tier must be one of %v, got %q", validQualityTiers, c.Pipeline.QualityTier)
	}
	for _, ct := range c.Pipeline.ContentTypes {
		if !slices.Contains(validContentTypes, ct) {
			return fmt.Errorf("pipeline.content_types: unsupported content type %q", ct)
		}
	}
	return nil
}

func (c *Config) validateTaxonomy() error {
	if c.Taxonomy.ConfidenceThreshold < 0 || c.Taxonomy.ConfidenceThreshold > 1 {
		return errors.New("taxonomy.confidence_threshold must be between 0 and 1")
	}
	for _, kind := range c.Taxonomy.Kinds {
		if !slices.Contains(validSuggestionKinds, kind) {
			return fmt.Errorf("taxonomy.kinds: unsupported suggestion kind %q", kind)
		}
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.CompleteThreshold <= 0 || c.Quality.CompleteThreshold > 100 {
		return errors.New("quality.complete_threshold must be in (0, 100]")
	}
	return nil
}
