package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/logger"
	"github.com/weak-head/fl-pipe/internal/metrics"
	"github.com/weak-head/fl-pipe/internal/processor"
	"github.com/weak-head/fl-pipe/internal/storage"
	"github.com/weak-head/fl-pipe/internal/stream"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics contains configuration for the prometheus endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Path    string `toml:"path"`
}

// Storage contains configuration for the S3 compatible object storage.
type Storage struct {
	Endpoint     string `toml:"endpoint"`
	UseSSL       bool   `toml:"use_ssl"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	Region       string `toml:"region"`
	CreateBucket bool   `toml:"create_bucket"`
}

// Processor contains configuration for the conversion job processor.
type Processor struct {
	DestinationBucket string `toml:"destination_bucket"`
	WorkDir           string `toml:"work_dir"`
	ConsumeSource     bool   `toml:"consume_source"`
}

// Converter contains configuration for the conversion engine.
type Converter struct {
	Engine string `toml:"engine"`
	Key    string `toml:"key"`

	// LockFile serializes sessions across processes sharing the engine.
	LockFile string `toml:"lock_file"`

	// KeepSource keeps local source files after a successful conversion.
	KeepSource bool `toml:"keep_source"`
}

// Pipeline contains configuration for the pipeline workers.
type Pipeline struct {
	Workers          int `toml:"workers"`
	BackoffInitialMs int `toml:"backoff_initial_ms"`
	BackoffMaxMs     int `toml:"backoff_max_ms"`
}

// Jobs contains configuration for the conversion job stream.
type Jobs struct {
	Brokers           []string `toml:"brokers"`
	Topic             string   `toml:"topic"`
	GroupID           string   `toml:"group_id"`
	CreateTopic       bool     `toml:"create_topic"`
	Partitions        int      `toml:"partitions"`
	ReplicationFactor int      `toml:"replication_factor"`
	MinBytes          int      `toml:"min_bytes"`
	MaxBytes          int      `toml:"max_bytes"`
	MaxWaitMs         int      `toml:"max_wait_ms"`
}

// Results contains configuration for the conversion result stream.
type Results struct {
	Addr              string `toml:"addr"`
	Topic             string `toml:"topic"`
	Balancer          string `toml:"balancer"`
	RequiredAcks      string `toml:"required_acks"`
	BatchTimeoutMs    int    `toml:"batch_timeout_ms"`
	CreateTopic       bool   `toml:"create_topic"`
	Partitions        int    `toml:"partitions"`
	ReplicationFactor int    `toml:"replication_factor"`
}

// Stream groups the kafka streams.
type Stream struct {
	Jobs    Jobs    `toml:"jobs"`
	Results Results `toml:"results"`
}

// Config encapsulates all configuration values for fl-pipe.
//
// Configuration sections by subsystem:
//   - Logging: log format and level
//   - Metrics: prometheus endpoint
//   - Storage: object storage holding sources and converted files
//   - Processor: destination bucket and scratch space of the service
//   - Converter: engine selection, signing key and session lock
//   - Pipeline: number of workers and retry backoff
//   - Stream: kafka job and result topics
type Config struct {
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
	Storage   Storage   `toml:"storage"`
	Processor Processor `toml:"processor"`
	Converter Converter `toml:"converter"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Stream    Stream    `toml:"stream"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and the secrets resolved from the environment.
// A missing file is not an error, the defaults are used instead.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfig)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// LoadEnvFiles loads environment variables from the .env files that exist,
// in the given order. Variables that are already set are not overridden, so
// the first file wins. It returns the files that were loaded.
func LoadEnvFiles(envFiles []string) ([]string, error) {
	var loaded []string
	for _, envFile := range envFiles {
		path, err := expandPath(envFile)
		if err != nil {
			return loaded, err
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is never overwritten.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	file, err := os.OpenFile(expanded, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

// MetricsConfig returns the metrics endpoint settings.
func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{Addr: c.Metrics.Addr, Path: c.Metrics.Path}
}

// StorageConfig returns the object storage settings.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Endpoint:               c.Storage.Endpoint,
		UseSSL:                 c.Storage.UseSSL,
		AccessKey:              c.Storage.AccessKey,
		SecretKey:              c.Storage.SecretKey,
		Region:                 c.Storage.Region,
		CreateBucketIfNotExist: c.Storage.CreateBucket,
	}
}

// ProcessorConfig returns the job processor settings.
func (c *Config) ProcessorConfig() processor.Config {
	return processor.Config{
		DestinationBucket: c.Processor.DestinationBucket,
		WorkDir:           c.Processor.WorkDir,
		ConsumeSource:     c.Processor.ConsumeSource,
	}
}

// ConverterConfig returns the stream converter settings.
func (c *Config) ConverterConfig() convert.Config {
	return convert.Config{
		Engine:     c.Converter.Engine,
		KeepSource: c.Converter.KeepSource,
	}
}

// ReaderConfig returns the job stream settings.
func (c *Config) ReaderConfig() stream.ReaderConfig {
	j := c.Stream.Jobs
	return stream.ReaderConfig{
		TopicConfig: stream.TopicConfig{
			Topic:             j.Topic,
			CreateIfNotExist:  j.CreateTopic,
			NumPartitions:     j.Partitions,
			ReplicationFactor: j.ReplicationFactor,
		},
		Brokers:  j.Brokers,
		GroupID:  j.GroupID,
		MinBytes: j.MinBytes,
		MaxBytes: j.MaxBytes,
		MaxWait:  time.Duration(j.MaxWaitMs) * time.Millisecond,
	}
}

// WriterConfig returns the result stream settings.
func (c *Config) WriterConfig() stream.WriterConfig {
	r := c.Stream.Results
	return stream.WriterConfig{
		TopicConfig: stream.TopicConfig{
			Topic:             r.Topic,
			CreateIfNotExist:  r.CreateTopic,
			NumPartitions:     r.Partitions,
			ReplicationFactor: r.ReplicationFactor,
		},
		Addr:         r.Addr,
		Balancer:     r.Balancer,
		RequiredAcks: r.RequiredAcks,
		BatchTimeout: time.Duration(r.BatchTimeoutMs) * time.Millisecond,
	}
}

// Backoff returns the initial and the maximum retry delay of the pipeline.
func (c *Config) Backoff() (time.Duration, time.Duration) {
	return time.Duration(c.Pipeline.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.Pipeline.BackoffMaxMs) * time.Millisecond
}
