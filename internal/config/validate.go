package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable for local conversions.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	return nil
}

// ValidateService ensures the configuration is usable for running the
// conversion service, on top of what Validate checks.
func (c *Config) ValidateService() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateConverter() error {
	if c.Converter.Key == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("converter.key is required. Set %s env var or edit %s (create with 'fl-pipe config init')", EnvConverterKey, defaultPath)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return fmt.Errorf("storage credentials are required. Set %s and %s env vars or edit the config", EnvStorageAccessKey, EnvStorageSecretKey)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	if c.Pipeline.BackoffInitialMs <= 0 {
		return errors.New("pipeline.backoff_initial_ms must be positive")
	}
	if c.Pipeline.BackoffMaxMs < c.Pipeline.BackoffInitialMs {
		return errors.New("pipeline.backoff_max_ms must not be less than pipeline.backoff_initial_ms")
	}
	return nil
}

func (c *Config) validateStream() error {
	jobs := c.Stream.Jobs
	if len(jobs.Brokers) == 0 {
		return errors.New("stream.jobs.brokers must list at least one broker")
	}
	if jobs.Topic == "" {
		return errors.New("stream.jobs.topic must be set")
	}
	if jobs.GroupID == "" {
		return errors.New("stream.jobs.group_id must be set")
	}
	if jobs.MinBytes < 0 || jobs.MaxBytes < jobs.MinBytes {
		return errors.New("stream.jobs.max_bytes must not be less than stream.jobs.min_bytes")
	}
	if c.Stream.Results.Topic == "" {
		return errors.New("stream.results.topic must be set")
	}
	if c.Stream.Results.Topic == jobs.Topic {
		return errors.New("stream.results.topic must differ from stream.jobs.topic")
	}
	switch c.Stream.Results.Balancer {
	case "roundrobin", "leastbytes", "hash", "crc32", "murmur2":
	default:
		return fmt.Errorf("stream.results.balancer %q is not supported", c.Stream.Results.Balancer)
	}
	if jobs.CreateTopic && (jobs.Partitions < 1 || jobs.ReplicationFactor < 1) {
		return errors.New("stream.jobs.partitions and stream.jobs.replication_factor must be at least 1 to create the topic")
	}
	switch c.Stream.Results.RequiredAcks {
	case "none", "one", "all":
	default:
		return fmt.Errorf("stream.results.required_acks %q must be none, one or all", c.Stream.Results.RequiredAcks)
	}
	if c.Stream.Results.BatchTimeoutMs < 0 {
		return errors.New("stream.results.batch_timeout_ms must not be negative")
	}
	results := c.Stream.Results
	if results.CreateTopic && (results.Partitions < 1 || results.ReplicationFactor < 1) {
		return errors.New("stream.results.partitions and stream.results.replication_factor must be at least 1 to create the topic")
	}
	return nil
}
