package config

const (
	defaultConfigPath        = "~/.config/fl-pipe/config.toml"
	defaultProjectConfig     = "fl-pipe.toml"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
	defaultMetricsAddr       = ":9090"
	defaultMetricsPath       = "/metrics"
	defaultStorageEndpoint   = "localhost:9000"
	defaultStorageRegion     = "us-east-1"
	defaultDestinationBucket = "converted"
	defaultEngine            = "loopback"
	defaultWorkers           = 1
	defaultBackoffInitialMs  = 500
	defaultBackoffMaxMs      = 30000
	defaultBroker            = "localhost:9092"
	defaultJobsTopic         = "fl-pipe.jobs"
	defaultResultsTopic      = "fl-pipe.results"
	defaultGroupID           = "fl-pipe"
	defaultBalancer          = "hash"
	defaultRequiredAcks      = "all"
	defaultBatchTimeoutMs    = 10
	defaultMinBytes          = 1
	defaultMaxBytes          = 10 << 20
	defaultMaxWaitMs         = 1000
	defaultPartitions        = 1
	defaultReplication       = 1
)

// Environment variables holding the secrets. They are used when the
// configuration file leaves the matching value empty.
const (
	EnvStorageAccessKey = "FLPIPE_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "FLPIPE_STORAGE_SECRET_KEY"
	EnvConverterKey     = "FLPIPE_CONVERTER_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Metrics: Metrics{
			Enabled: true,
			Addr:    defaultMetricsAddr,
			Path:    defaultMetricsPath,
		},
		Storage: Storage{
			Endpoint:     defaultStorageEndpoint,
			Region:       defaultStorageRegion,
			CreateBucket: true,
		},
		Processor: Processor{
			DestinationBucket: defaultDestinationBucket,
			ConsumeSource:     true,
		},
		Converter: Converter{
			Engine: defaultEngine,
		},
		Pipeline: Pipeline{
			Workers:          defaultWorkers,
			BackoffInitialMs: defaultBackoffInitialMs,
			BackoffMaxMs:     defaultBackoffMaxMs,
		},
		Stream: Stream{
			Jobs: Jobs{
				Brokers:           []string{defaultBroker},
				Topic:             defaultJobsTopic,
				GroupID:           defaultGroupID,
				Partitions:        defaultPartitions,
				ReplicationFactor: defaultReplication,
				MinBytes:          defaultMinBytes,
				MaxBytes:          defaultMaxBytes,
				MaxWaitMs:         defaultMaxWaitMs,
			},
			Results: Results{
				Addr:              defaultBroker,
				Topic:             defaultResultsTopic,
				Balancer:          defaultBalancer,
				RequiredAcks:      defaultRequiredAcks,
				BatchTimeoutMs:    defaultBatchTimeoutMs,
				Partitions:        defaultPartitions,
				ReplicationFactor: defaultReplication,
			},
		},
	}
}
