package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aptbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// stubReader serves queued messages, then blocks until ctx ends.
type stubReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *stubReader) Close() error { return nil }

func (r *stubReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type stubWriter struct {
	mu       sync.Mutex
	failures int
	attempts int
	written  []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if w.failures < 0 || w.attempts <= w.failures {
		return errors.New("dlq broker unreachable")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func (w *stubWriter) stats() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts, len(w.written)
}

func newStubConsumer(reader *stubReader, writer *stubWriter) *Consumer {
	return &Consumer{
		reader:     reader,
		dlqWriter:  writer,
		topic:      "bookings",
		groupID:    "notifier",
		dlqTopic:   "bookings.dlq",
		maxRetries: 0,
		backoff:    time.Millisecond,
		handler: func(context.Context, Message) error {
			return NewPermanentError("template missing", nil)
		},
		log: logger.Discard(),
	}
}

func TestConsumer_CommitsAfterDLQWriteRecovers(t *testing.T) {
	reader := &stubReader{queue: []kafka.Message{{Topic: "bookings", Offset: 7, Key: []byte("b-1"), Value: []byte(`{}`)}}}
	writer := &stubWriter{failures: 2}
	c := newStubConsumer(reader, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(reader.commits()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	attempts, written := writer.stats()
	if attempts != 3 || written != 1 {
		t.Errorf("dlq attempts = %d, written = %d, want 3 and 1", attempts, written)
	}
	if got := reader.commits(); len(got) != 1 || got[0] != 7 {
		t.Errorf("committed = %v, want [7]", got)
	}
}

func TestConsumer_DLQFailureLeavesOffsetUncommitted(t *testing.T) {
	reader := &stubReader{queue: []kafka.Message{
		{Topic: "bookings", Offset: 3, Key: []byte("b-1"), Value: []byte(`{}`)},
		{Topic: "bookings", Offset: 4, Key: []byte("b-2"), Value: []byte(`{}`)},
	}}
	writer := &stubWriter{failures: -1}
	c := newStubConsumer(reader, writer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Start(ctx)
	if !errors.Is(err, ErrDLQWriteFailed) {
		t.Errorf("Start() error = %v, want %v", err, ErrDLQWriteFailed)
	}
	if got := reader.commits(); len(got) != 0 {
		t.Errorf("committed = %v, want none", got)
	}
	if attempts, _ := writer.stats(); attempts < 2 {
		t.Errorf("dlq attempts = %d, want retries", attempts)
	}
}
