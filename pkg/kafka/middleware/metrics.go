package kafka_middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aptbook/pkg/kafka"
)

// ConsumerMetrics counts handled messages per event type.
type ConsumerMetrics struct {
	consumed      atomic.Int64
	failed        atomic.Int64
	durationTotal atomic.Int64

	mu     sync.Mutex
	byType map[string]int64
}

func NewConsumerMetrics() *ConsumerMetrics {
	return &ConsumerMetrics{byType: make(map[string]int64)}
}

type MetricsSnapshot struct {
	Consumed    int64
	Failed      int64
	AvgDuration time.Duration
	ByEventType map[string]int64
}

func (m *ConsumerMetrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Consumed: m.consumed.Load(),
		Failed:   m.failed.Load(),
	}
	if handled := s.Consumed + s.Failed; handled > 0 {
		s.AvgDuration = time.Duration(m.durationTotal.Load() / handled)
	}

	m.mu.Lock()
	s.ByEventType = make(map[string]int64, len(m.byType))
	for k, v := range m.byType {
		s.ByEventType[k] = v
	}
	m.mu.Unlock()
	return s
}

// LogAttrs flattens the snapshot into logger key/value pairs.
func (s MetricsSnapshot) LogAttrs() []any {
	attrs := []any{
		"consumed", s.Consumed,
		"failed", s.Failed,
		"avg_duration", s.AvgDuration,
	}
	for eventType, n := range s.ByEventType {
		attrs = append(attrs, "events."+eventType, n)
	}
	return attrs
}

func MetricsConsumerMiddleware(m *ConsumerMetrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.durationTotal.Add(int64(time.Since(start)))

		if err != nil {
			m.failed.Add(1)
			return err
		}
		m.consumed.Add(1)

		eventType := msg.GetEventType()
		if eventType == "" {
			eventType = "unknown"
		}
		m.mu.Lock()
		m.byType[eventType]++
		m.mu.Unlock()
		return nil
	}
}
