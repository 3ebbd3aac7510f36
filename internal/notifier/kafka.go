package notifier

import (
	"context"
	"errors"
	"fmt"

	"helipad/pkg/kafka"
	kafka_config "helipad/pkg/kafka/config"
	kafka_middleware "helipad/pkg/kafka/middleware"
	"helipad/pkg/logger"

	"github.com/google/uuid"
)

var ErrSourceClosed = errors.New("notifier source is closed")

const eventSource = "reservations"

type KafkaBus struct {
	producer *kafka.Producer
}

func NewKafkaBus(cfg *kafka_config.Config, topic string, log *logger.Logger) (*KafkaBus, error) {
	producer, err := kafka.NewProducer(cfg, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log.Component("kafka_producer")))
	return &KafkaBus{producer: producer}, nil
}

func (b *KafkaBus) Send(ctx context.Context, key string, eventType string, payload []byte) error {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithRawValue(payload).
		WithEventType(eventType).
		WithSource(eventSource).
		Build()
	if err != nil {
		return err
	}
	return b.producer.Publish(ctx, msg)
}

func (b *KafkaBus) Close() error {
	return b.producer.Close()
}

// KafkaSource consumes the topic with a consumer group unique to this
// process, so every replica sees every event.
type KafkaSource struct {
	consumer *kafka.Consumer
	messages chan []byte
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewKafkaSource(cfg *kafka_config.Config, topic string, log *logger.Logger) (*KafkaSource, error) {
	s := &KafkaSource{
		messages: make(chan []byte, DefaultQueueSize),
		done:     make(chan struct{}),
	}

	groupID := cfg.ConsumerGroupPrefix + "-" + uuid.NewString()
	consumer, err := kafka.NewConsumer(cfg, topic, groupID, s.handle, log.Component("kafka_consumer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log.Component("kafka_consumer")))
	s.consumer = consumer

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		_ = consumer.Start(ctx)
	}()

	return s, nil
}

func (s *KafkaSource) handle(ctx context.Context, msg kafka.Message) error {
	select {
	case s.messages <- msg.Value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KafkaSource) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-s.messages:
		return payload, nil
	case <-s.done:
		return nil, ErrSourceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *KafkaSource) Close() error {
	s.cancel()
	err := s.consumer.Close()
	<-s.done
	return err
}
