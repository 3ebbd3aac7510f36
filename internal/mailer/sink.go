package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"helipad/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes notices as persistent JSON messages to a durable queue
// consumed by the email service.
type AMQPSink struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPSink{conn: conn, channel: ch, queue: queue}, nil
}

func (s *AMQPSink) Deliver(ctx context.Context, notice Notice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channel.PublishWithContext(ctx,
		"",      // default exchange
		s.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         string(notice.Kind),
			MessageId:    notice.ReservationID + ":" + string(notice.Kind),
			Body:         body,
		},
	)
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.channel.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// LogSink records notices in the service log. Used when no broker is
// configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.Component("mailer_log_sink")}
}

func (s *LogSink) Deliver(ctx context.Context, notice Notice) error {
	s.log.Info("Notice issued",
		"kind", notice.Kind,
		"reservation_id", notice.ReservationID,
		"owner_id", notice.OwnerID,
		"start_time", notice.StartTime,
		"end_time", notice.EndTime,
	)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
