package stream

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	kafka "github.com/segmentio/kafka-go"
)

var (
	// ErrNoBrokersProvided happens when the reader has no broker to connect to.
	ErrNoBrokersProvided = errors.New("no brokers provided")

	// ErrNoTopicProvided happens when the topic name is empty.
	ErrNoTopicProvided = errors.New("no topic provided")
)

// NewReader creates a consumer group reader, creating the topic first
// when configured to.
func NewReader(config ReaderConfig) (*kafka.Reader, error) {
	if len(config.Brokers) == 0 {
		return nil, ErrNoBrokersProvided
	}

	if config.Topic == "" {
		return nil, ErrNoTopicProvided
	}

	if err := createTopic(config.Brokers[0], config.TopicConfig); err != nil {
		return nil, fmt.Errorf("create topic %s: %w", config.Topic, err)
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  config.Brokers,
		GroupID:  config.GroupID,
		Topic:    config.Topic,
		MinBytes: config.MinBytes,
		MaxBytes: config.MaxBytes,
		MaxWait:  config.MaxWait,
	}), nil
}

// NewWriter creates a writer for the configured topic, creating the topic
// first when configured to.
func NewWriter(config WriterConfig) (*kafka.Writer, error) {
	if config.Addr == "" {
		return nil, ErrNoBrokersProvided
	}

	if config.Topic == "" {
		return nil, ErrNoTopicProvided
	}

	if err := createTopic(config.Addr, config.TopicConfig); err != nil {
		return nil, fmt.Errorf("create topic %s: %w", config.Topic, err)
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(config.Addr),
		Topic:        config.Topic,
		Balancer:     createBalancer(config.Balancer),
		RequiredAcks: createRequiredAcks(config.RequiredAcks),
		BatchTimeout: config.BatchTimeout,
	}, nil
}

// createTopic
func createTopic(addr string, config TopicConfig) error {
	if !config.CreateIfNotExist {
		return nil
	}

	// Connect to some node
	conn, err := kafka.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Get the current controller
	controller, err := conn.Controller()
	if err != nil {
		return err
	}

	// Connect to the current controller
	controllerConn, err := kafka.Dial(
		"tcp",
		net.JoinHostPort(
			controller.Host,
			strconv.Itoa(controller.Port),
		),
	)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	topicConfigs := []kafka.TopicConfig{{
		Topic:             config.Topic,
		NumPartitions:     config.NumPartitions,
		ReplicationFactor: config.ReplicationFactor,
	}}

	// Existing topics are left untouched
	return controllerConn.CreateTopics(topicConfigs...)
}

// createBalancer
func createBalancer(balancer string) kafka.Balancer {
	switch balancer {

	// Classical round robin
	case "roundrobin":
		return &kafka.RoundRobin{}

	// Partition that received the least bytes
	case "leastbytes":
		return &kafka.LeastBytes{}

	// FNV-1a, keeps the results of one job on one partition
	case "hash":
		return &kafka.Hash{}

	// CRC32 hash
	case "crc32":
		return &kafka.CRC32Balancer{}

	// Murmur2 hash
	case "murmur2":
		return &kafka.Murmur2Balancer{}

	default:
		return &kafka.LeastBytes{}
	}
}

// createRequiredAcks defaults to waiting for all in-sync replicas,
// a result is not committed before it is acknowledged.
func createRequiredAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "none":
		return kafka.RequireNone
	case "one":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}
