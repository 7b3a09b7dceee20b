package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu      sync.Mutex
	msgs    []skafka.Message
	err     error
	closed  bool
	started chan struct{} // receives once per WriteMessages call, if set
	release chan struct{} // WriteMessages blocks until closed, if set
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) written() []skafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]skafka.Message(nil), f.msgs...)
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w, Config{WriteTimeout: time.Second}, zaptest.NewLogger(t))

	event := domain.PaymentCompletedEvent{
		Type:      "payment.completed",
		PaymentID: "pay_1",
		BookID:    "book_1",
		UserUID:   "user_1",
		TxID:      "tx_1",
	}
	require.NoError(t, p.Publish(context.Background(), "pay_1", event))

	// Close delivers whatever is still queued
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "pay_1", string(msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, "payment.completed", decoded["type"])
	assert.Equal(t, "book_1", decoded["bookId"])
	assert.Equal(t, "tx_1", decoded["txid"])
}

func TestPublisher_SlowBrokerDoesNotBlockPublish(t *testing.T) {
	w := &fakeWriter{started: make(chan struct{}, 4), release: make(chan struct{})}
	p := NewPublisherWithWriter(w, Config{WriteTimeout: 5 * time.Second, QueueSize: 2}, zaptest.NewLogger(t))

	require.NoError(t, p.Publish(context.Background(), "k1", "a"))
	<-w.started // the worker is now stuck on the broker

	start := time.Now()
	require.NoError(t, p.Publish(context.Background(), "k2", "b"))
	require.NoError(t, p.Publish(context.Background(), "k3", "c"))
	assert.ErrorIs(t, p.Publish(context.Background(), "k4", "d"), ErrQueueFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(w.release)
	require.NoError(t, p.Close())

	var keys []string
	for _, m := range w.written() {
		keys = append(keys, string(m.Key))
	}
	assert.Equal(t, []string{"k1", "k2", "k3"}, keys)
}

func TestPublisher_WriteErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewPublisherWithWriter(w, Config{WriteTimeout: time.Second}, zap.New(core))

	// Delivery happens later, so the caller never sees the broker error
	require.NoError(t, p.Publish(context.Background(), "k", map[string]string{"a": "b"}))
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("Failed to deliver events").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broker down", entries[0].ContextMap()["error"])
}

func TestPublisher_MarshalErrorIsReturned(t *testing.T) {
	p := NewPublisherWithWriter(&fakeWriter{}, Config{}, zaptest.NewLogger(t))
	defer p.Close()

	err := p.Publish(context.Background(), "k", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal event")
}

func TestPublisher_PublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w, Config{}, zaptest.NewLogger(t))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.Publish(context.Background(), "k", "v"), ErrPublisherClosed)
	assert.Empty(t, w.written())
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), "k", struct{}{}))
	assert.NoError(t, p.Close())
}
