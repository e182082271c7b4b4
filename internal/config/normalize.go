package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeLogging()
	c.normalizeStorage()
	if err := c.normalizeProcessor(); err != nil {
		return err
	}
	if err := c.normalizeConverter(); err != nil {
		return err
	}
	c.normalizeStream()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "http://")
	if strings.HasPrefix(c.Storage.Endpoint, "https://") {
		c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "https://")
		c.Storage.UseSSL = true
	}
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv(EnvStorageAccessKey); ok {
			c.Storage.AccessKey = value
		}
	}
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv(EnvStorageSecretKey); ok {
			c.Storage.SecretKey = value
		}
	}
}

func (c *Config) normalizeProcessor() error {
	var err error
	c.Processor.DestinationBucket = strings.TrimSpace(c.Processor.DestinationBucket)
	if c.Processor.WorkDir, err = expandPath(strings.TrimSpace(c.Processor.WorkDir)); err != nil {
		return fmt.Errorf("processor.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConverter() error {
	var err error
	c.Converter.Engine = strings.TrimSpace(c.Converter.Engine)
	if c.Converter.Engine == "" {
		c.Converter.Engine = defaultEngine
	}
	if c.Converter.Key == "" {
		if value, ok := os.LookupEnv(EnvConverterKey); ok {
			c.Converter.Key = value
		}
	}
	if c.Converter.LockFile, err = expandPath(strings.TrimSpace(c.Converter.LockFile)); err != nil {
		return fmt.Errorf("converter.lock_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeStream() {
	brokers := c.Stream.Jobs.Brokers[:0]
	for _, b := range c.Stream.Jobs.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Stream.Jobs.Brokers = brokers
	c.Stream.Jobs.Topic = strings.TrimSpace(c.Stream.Jobs.Topic)

	c.Stream.Results.Addr = strings.TrimSpace(c.Stream.Results.Addr)
	if c.Stream.Results.Addr == "" && len(brokers) > 0 {
		c.Stream.Results.Addr = brokers[0]
	}
	c.Stream.Results.Topic = strings.TrimSpace(c.Stream.Results.Topic)
	c.Stream.Results.Balancer = strings.ToLower(strings.TrimSpace(c.Stream.Results.Balancer))
	if c.Stream.Results.Balancer == "" {
		c.Stream.Results.Balancer = defaultBalancer
	}
	c.Stream.Results.RequiredAcks = strings.ToLower(strings.TrimSpace(c.Stream.Results.RequiredAcks))
	if c.Stream.Results.RequiredAcks == "" {
		c.Stream.Results.RequiredAcks = defaultRequiredAcks
	}
}
