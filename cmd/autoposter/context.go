package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"autoposter/internal/config"
	"autoposter/internal/logging"
	"autoposter/internal/pipeline"
)

type commandContext struct {
	configFlag   *string
	jsonFlag     *bool
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runtime *pipeline.Runtime
}

func newCommandContext(configFlag *string, jsonFlag *bool, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		jsonFlag:     jsonFlag,
		logLevelFlag: logLevelFlag,
	}
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

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) logLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return cfg.Logging.Level
}

// logger writes to stderr and the log file so command output stays clean.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:            c.logLevel(cfg),
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr", cfg.LogPath()},
		ErrorOutputPaths: []string{"stderr", cfg.LogPath()},
	})
}

// ensureRuntime opens the pipeline runtime once per invocation.
func (c *commandContext) ensureRuntime() (*pipeline.Runtime, error) {
	if c.runtime != nil {
		return c.runtime, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	rt, err := pipeline.Open(cfg, logger, pipeline.WithVersion(version))
	if err != nil {
		return nil, err
	}
	c.runtime = rt
	return rt, nil
}

// withRuntime runs fn against an open runtime and closes it afterwards,
// whether or not fn failed.
func (c *commandContext) withRuntime(fn func(*pipeline.Runtime) error) (err error) {
	rt, err := c.ensureRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.close(); err == nil {
			err = closeErr
		}
	}()
	return fn(rt)
}

func (c *commandContext) close() error {
	if c.runtime == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.runtime.Close(shutdownCtx)
	c.runtime = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
