package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerGroupPrefix = "helipad-feed"
	DefaultConsumerMinBytes    = 1
	DefaultConsumerMaxBytes    = 1 * 1024 * 1024 // 1MB
	DefaultConsumerMaxWait     = 250 * time.Millisecond
)
