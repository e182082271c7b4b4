package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"github.com/weak-head/fl-pipe/internal/config"
)

func TestLoadDefaultConfigUsesEnvSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConverterKey, "engine-key")
	t.Setenv(config.EnvStorageAccessKey, "access")
	t.Setenv(config.EnvStorageSecretKey, "secret")

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	require.NotEmpty(t, resolved)
	require.False(t, exists)

	require.Equal(t, "engine-key", cfg.Converter.Key)
	require.Equal(t, "access", cfg.Storage.AccessKey)
	require.Equal(t, "secret", cfg.Storage.SecretKey)
	require.Equal(t, config.Default().Stream.Jobs.Topic, cfg.Stream.Jobs.Topic)
	require.NoError(t, cfg.ValidateService())
}

func TestLoadRequiresConverterKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConverterKey, "")
	os.Unsetenv(config.EnvConverterKey)

	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), config.EnvConverterKey)
}

func TestLoadFileOverridesDefaultsAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvConverterKey, "from-env")

	path := filepath.Join(t.TempDir(), "fl-pipe.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = " DEBUG "
format = "json"

[storage]
endpoint = "https://s3.example.com"

[processor]
work_dir = "~/scratch"

[converter]
key = "from-file"
lock_file = "~/engine.lock"

[stream.jobs]
brokers = [" kafka-1:9092 ", "", "kafka-2:9092"]

[stream.results]
addr = ""
balancer = "CRC32"
`), 0o644))

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, path, resolved)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "s3.example.com", cfg.Storage.Endpoint)
	require.True(t, cfg.Storage.UseSSL)
	require.Equal(t, filepath.Join(home, "scratch"), cfg.Processor.WorkDir)
	require.Equal(t, "from-file", cfg.Converter.Key)
	require.Equal(t, filepath.Join(home, "engine.lock"), cfg.Converter.LockFile)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Stream.Jobs.Brokers)
	require.Equal(t, "kafka-1:9092", cfg.Stream.Results.Addr)
	require.Equal(t, "crc32", cfg.Stream.Results.Balancer)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(config.EnvConverterKey, "k")

	path := filepath.Join(t.TempDir(), "fl-pipe.toml")
	require.NoError(t, os.WriteFile(path, []byte("[converter]\nengin = \"loopback\"\n"), 0o644))

	_, _, _, err := config.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	for scenario, tc := range map[string]struct {
		mutate  func(c *config.Config)
		service bool
	}{
		"bad log level":      {mutate: func(c *config.Config) { c.Logging.Level = "loud" }},
		"bad log format":     {mutate: func(c *config.Config) { c.Logging.Format = "xml" }},
		"no converter key":   {mutate: func(c *config.Config) { c.Converter.Key = "" }},
		"no storage secret":  {mutate: func(c *config.Config) { c.Storage.SecretKey = "" }, service: true},
		"no storage host":    {mutate: func(c *config.Config) { c.Storage.Endpoint = "" }, service: true},
		"no workers":         {mutate: func(c *config.Config) { c.Pipeline.Workers = 0 }, service: true},
		"backoff inverted":   {mutate: func(c *config.Config) { c.Pipeline.BackoffMaxMs = 1 }, service: true},
		"no brokers":         {mutate: func(c *config.Config) { c.Stream.Jobs.Brokers = nil }, service: true},
		"no group":           {mutate: func(c *config.Config) { c.Stream.Jobs.GroupID = "" }, service: true},
		"same topics":        {mutate: func(c *config.Config) { c.Stream.Results.Topic = c.Stream.Jobs.Topic }, service: true},
		"bad balancer":       {mutate: func(c *config.Config) { c.Stream.Results.Balancer = "random" }, service: true},
		"bad required acks":  {mutate: func(c *config.Config) { c.Stream.Results.RequiredAcks = "two" }, service: true},
		"no partitions":      {mutate: func(c *config.Config) { c.Stream.Jobs.CreateTopic = true; c.Stream.Jobs.Partitions = 0 }, service: true},
		"no metrics address": {mutate: func(c *config.Config) { c.Metrics.Addr = "" }, service: true},
	} {
		t.Run(scenario, func(t *testing.T) {
			cfg := validConfig()
			require.NoError(t, cfg.ValidateService())

			tc.mutate(&cfg)
			if !tc.service {
				require.Error(t, cfg.Validate())
			}
			require.Error(t, cfg.ValidateService())
		})
	}
}

func TestComponentConfigs(t *testing.T) {
	cfg := validConfig()

	require.Equal(t, "info", cfg.LoggerConfig().Level)
	require.Equal(t, ":9090", cfg.MetricsConfig().Addr)
	require.Equal(t, "access", cfg.StorageConfig().AccessKey)
	require.True(t, cfg.StorageConfig().CreateBucketIfNotExist)
	require.Equal(t, "converted", cfg.ProcessorConfig().DestinationBucket)
	require.True(t, cfg.ProcessorConfig().ConsumeSource)
	require.Equal(t, "loopback", cfg.ConverterConfig().Engine)

	reader := cfg.ReaderConfig()
	require.Equal(t, "fl-pipe.jobs", reader.Topic)
	require.Equal(t, time.Second, reader.MaxWait)

	writer := cfg.WriterConfig()
	require.Equal(t, "fl-pipe.results", writer.Topic)
	require.Equal(t, "hash", writer.Balancer)
	require.Equal(t, "all", writer.RequiredAcks)
	require.Equal(t, 10*time.Millisecond, writer.BatchTimeout)

	initial, max := cfg.Backoff()
	require.Equal(t, 500*time.Millisecond, initial)
	require.Equal(t, 30*time.Second, max)
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var sample config.Config
	require.NoError(t, toml.Unmarshal(data, &sample))
	require.Equal(t, config.Default(), sample)

	require.Error(t, config.CreateSample(path))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("FLPIPE_TEST_A=first\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("FLPIPE_TEST_A=second\nFLPIPE_TEST_B=second\n"), 0o600))

	t.Setenv("FLPIPE_TEST_A", "")
	t.Setenv("FLPIPE_TEST_B", "")
	os.Unsetenv("FLPIPE_TEST_A")
	os.Unsetenv("FLPIPE_TEST_B")

	loaded, err := config.LoadEnvFiles([]string{first, filepath.Join(dir, "missing.env"), second})
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, loaded)
	require.Equal(t, "first", os.Getenv("FLPIPE_TEST_A"))
	require.Equal(t, "second", os.Getenv("FLPIPE_TEST_B"))
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Converter.Key = "key"
	cfg.Storage.AccessKey = "access"
	cfg.Storage.SecretKey = "secret"
	return cfg
}
