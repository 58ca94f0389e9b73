package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/logging"
)

// commandContext loads configuration and the logger once per invocation.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	once   sync.Once
	cfg    *config.EnvConfig
	logger *slog.Logger
	err    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.EnvConfig, error) {
	c.once.Do(func() {
		if c.configFlag != nil && *c.configFlag != "" {
			if err := os.Setenv(config.EnvConfigFile, *c.configFlag); err != nil {
				c.err = fmt.Errorf("set config path: %w", err)
				return
			}
		}
		cfg, err := config.New()
		if err != nil {
			c.err = fmt.Errorf("load config: %w", err)
			return
		}
		level := cfg.LogLevel()
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			level = *c.logLevelFlag
		}
		c.cfg = cfg
		c.logger = logging.NewLogger(level, cfg.LogFormat())
	})
	return c.cfg, c.err
}
