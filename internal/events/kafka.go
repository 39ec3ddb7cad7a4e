package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"staybook/internal/config"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const defaultSinkBuffer = 256

var (
	ErrSinkFull   = errors.New("kafka sink queue is full")
	ErrSinkClosed = errors.New("kafka sink is closed")
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards bus events to a Kafka topic, keyed by spot id so every
// event of one spot lands on the same partition in order. Handle only queues
// the message; a background goroutine does the writing, so a slow broker never
// holds up the publisher.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zerolog.Logger

	queue  chan kafka.Message
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewKafkaSink starts the writer goroutine. buffer <= 0 uses the default size.
func NewKafkaSink(writer MessageWriter, timeout time.Duration, buffer int, logger *zerolog.Logger) *KafkaSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	s := &KafkaSink{
		writer:  writer,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan kafka.Message, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Attach subscribes the sink to the given event types.
func (s *KafkaSink) Attach(bus *EventBus, eventTypes ...string) {
	bus.Subscribe(s.Handle, eventTypes...)
}

// Handle queues one event. It satisfies EventHandler and never blocks: a full
// queue drops the event with ErrSinkFull.
func (s *KafkaSink) Handle(event *Event) error {
	msg := kafka.Message{
		Key:   messageKey(event),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.queue <- msg:
		return nil
	default:
		s.logger.Warn().Str("event_type", event.Type).Msg("kafka queue full, event dropped")
		return ErrSinkFull
	}
}

func messageKey(event *Event) []byte {
	var payload BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return nil
	}
	switch {
	case payload.SpotID != 0:
		return []byte(fmt.Sprintf("spot-%d", payload.SpotID))
	case payload.BookingID != 0:
		return []byte(fmt.Sprintf("booking-%d", payload.BookingID))
	}
	return nil
}

func (s *KafkaSink) run() {
	defer s.wg.Done()
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("kafka publish failed")
		}
	}
}

// Close stops accepting events, flushes what is queued and closes the writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return s.writer.Close()
}
