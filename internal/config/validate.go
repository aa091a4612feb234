package config

import (
	"fmt"
	"net/url"
	"strings"

	"redline/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return fmt.Errorf("service.base_url is required")
	}
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("service.base_url must be an absolute URL, got %q", c.Service.BaseURL)
	}
	if c.Service.PollInterval < 1 {
		return fmt.Errorf("service.poll_interval must be at least 1 second")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if _, err := language.Normalize(c.Upload.Language); err != nil {
		return fmt.Errorf("upload.language: %w", err)
	}
	if c.Upload.SpeakerCount < 1 || c.Upload.SpeakerCount > 10 {
		return fmt.Errorf("upload.speaker_count must be between 1 and 10, got %d", c.Upload.SpeakerCount)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
