package main

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"redline/internal/config"
	"redline/internal/localstore"
	"redline/internal/logging"
	"redline/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	clientOnce sync.Once
	client     *services.Client
	clientErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// ensureLogger builds the CLI logger from config; a config failure degrades
// to a stderr console logger so diagnostics still land somewhere.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger, _ = logging.New(logging.Options{})
			return
		}
		logger, err := logging.NewToFile(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		}, cfg.Paths.LogDir, "redline.log")
		if err != nil {
			c.logger, _ = logging.New(logging.Options{})
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) serviceClient() (*services.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.clientErr = err
			return
		}
		jar, _ := cookiejar.New(nil)
		httpClient := &http.Client{
			Timeout: time.Duration(cfg.Service.RequestTimeout) * time.Second,
			Jar:     jar,
		}
		c.client = services.NewClient(cfg.Service.BaseURL,
			services.WithHTTPClient(httpClient),
			services.WithLogger(c.ensureLogger()),
		)
	})
	return c.client, c.clientErr
}

// withStore opens the local entry store for the duration of fn.
func (c *commandContext) withStore(fn func(*localstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := localstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) pollInterval() time.Duration {
	cfg, err := c.ensureConfig()
	if err != nil {
		return 2 * time.Second
	}
	return time.Duration(cfg.Service.PollInterval) * time.Second
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
