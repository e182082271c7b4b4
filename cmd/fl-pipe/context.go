package main

import (
	"io"
	"strings"
	"sync"

	"github.com/weak-head/fl-pipe/internal/config"
	"github.com/weak-head/fl-pipe/internal/logger"
)

type commandContext struct {
	configFlag   *string
	envFilesFlag *[]string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	envFiles     []string
	configErr    error
}

func newCommandContext(configFlag *string, envFilesFlag *[]string, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		envFilesFlag: envFilesFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the .env files and then the configuration, once.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFilesFlag != nil {
			loaded, err := config.LoadEnvFiles(*c.envFilesFlag)
			if err != nil {
				c.configErr = err
				return
			}
			c.envFiles = loaded
		}

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}

		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
			}
		}

		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// logger creates the logger described by the configuration, writing to out.
func (c *commandContext) logger(out io.Writer) (logger.Log, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewWithOutput(cfg.LoggerConfig(), out)
	if err != nil {
		return nil, err
	}
	return log.WithField(logger.FieldPackage, "main"), nil
}
