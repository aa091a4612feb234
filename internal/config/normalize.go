package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StorePath) == "" {
		c.Paths.StorePath = defaultStorePath
	}
	if c.Paths.StorePath, err = expandPath(c.Paths.StorePath); err != nil {
		return fmt.Errorf("paths.store_path: %w", err)
	}

	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
	if c.Service.PollInterval <= 0 {
		c.Service.PollInterval = defaultPollInterval
	}

	c.Upload.Language = strings.ToLower(strings.TrimSpace(c.Upload.Language))
	if c.Upload.Language == "" {
		c.Upload.Language = defaultLanguage
	}
	if c.Upload.SpeakerCount <= 0 {
		c.Upload.SpeakerCount = defaultSpeakerCount
	}

	c.Analysis.DefaultProfile = strings.TrimSpace(c.Analysis.DefaultProfile)
	if c.Analysis.DefaultProfile == "" {
		c.Analysis.DefaultProfile = defaultAnalysisProfile
	}

	if strings.TrimSpace(c.Demo.FilenamePrefix) == "" {
		c.Demo.FilenamePrefix = defaultDemoFilenamePrefix
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
