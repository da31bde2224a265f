package events

import (
	"context"
	"fmt"
	"sync"

	"aptbook/pkg/kafka"
	kafka_config "aptbook/pkg/kafka/config"
	kafka_middleware "aptbook/pkg/kafka/middleware"
	"aptbook/pkg/logger"
)

// Publisher emits domain events. Publishing happens after the store write has
// committed; a failed publish is logged by callers and never rolls back.
type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

type KafkaPublisher struct {
	producers map[string]*kafka.Producer
	source    string
}

func NewKafkaPublisher(cfg *kafka_config.Config, source string, log *logger.Logger, topics ...string) (*KafkaPublisher, error) {
	p := &KafkaPublisher{
		producers: make(map[string]*kafka.Producer, len(topics)),
		source:    source,
	}
	for _, topic := range topics {
		producer, err := kafka.NewProducer(cfg, topic, DLQ(topic), log)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("create producer for %s: %w", topic, err)
		}
		if cfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
		}
		p.producers[topic] = producer
	}
	return p, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	producer, ok := p.producers[topic]
	if !ok {
		return fmt.Errorf("no producer registered for topic %s", topic)
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithEventType(eventType).
		WithSource(p.source).
		WithSchemaVersion(SchemaVersion).
		WithValue(payload).
		Build()
	if err != nil {
		return err
	}
	return producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	var firstErr error
	for _, producer := range p.producers {
		if err := producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, string, any) error { return nil }

// Recorded is one event captured by a RecordingPublisher.
type Recorded struct {
	Topic     string
	Key       string
	EventType string
	Payload   any
}

// RecordingPublisher keeps published events in memory for tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []Recorded
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, topic, key, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, Recorded{Topic: topic, Key: key, EventType: eventType, Payload: payload})
	return nil
}

func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}
