package stream

import "time"

// TopicConfig
type TopicConfig struct {
	Topic             string
	CreateIfNotExist  bool
	NumPartitions     int
	ReplicationFactor int
}

// ReaderConfig describes the consumer of conversion jobs.
type ReaderConfig struct {
	TopicConfig

	Brokers  []string
	GroupID  string
	MinBytes int
	MaxBytes int

	// MaxWait bounds the time a fetch waits for MinBytes.
	MaxWait time.Duration
}

// WriterConfig describes the producer of conversion results.
type WriterConfig struct {
	TopicConfig

	Addr     string
	Balancer string

	// RequiredAcks is one of "none", "one" or "all".
	RequiredAcks string

	// BatchTimeout bounds the time a result waits for a batch to fill up.
	BatchTimeout time.Duration
}
