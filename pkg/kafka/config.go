package kafka

import "time"

// ProducerConfig configures the Kafka producer
type ProducerConfig struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string

	// Topic is the default topic to publish to
	Topic string

	// BatchSize is the number of messages to batch before sending
	BatchSize int

	// BatchTimeout is the maximum time to wait before sending a batch
	BatchTimeout time.Duration

	// MaxAttempts is the number of attempts before giving up on a message
	MaxAttempts int

	// WriteTimeout is the timeout for write operations
	WriteTimeout time.Duration

	// Async determines whether Publish waits for broker acknowledgement
	Async bool

	// Compression is the compression codec: "gzip", "snappy", "lz4", "zstd"
	Compression string

	// RequiredAcks is the number of acknowledgements required (0, 1, -1)
	RequiredAcks int
}

// DefaultProducerConfig returns a ProducerConfig with sensible defaults
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "template-events",
		BatchSize:    100,
		BatchTimeout: 100 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Async:        false,
		Compression:  "snappy",
		RequiredAcks: 1,
	}
}
