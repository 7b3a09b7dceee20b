package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
	skafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
	maxBatch            = 100
)

var (
	// ErrQueueFull is returned when events arrive faster than the broker accepts them
	ErrQueueFull = errors.New("event queue is full")

	// ErrPublisherClosed is returned by Publish after Close
	ErrPublisherClosed = errors.New("event publisher is closed")
)

// Writer is the subset of kafka.Writer the publisher uses
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Config configures the Kafka event publisher
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	QueueSize    int
}

// Publisher writes JSON encoded domain events to a Kafka topic.
//
// Publish only enqueues. A single worker drains the queue into the broker, so
// a slow or unreachable broker never holds up the caller. When the queue is
// full the event is dropped and ErrQueueFull returned.
type Publisher struct {
	writer  Writer
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan skafka.Message
	wg     sync.WaitGroup
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher backed by a kafka-go writer
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireAll,
		AllowAutoTopicCreation: true,
		// The worker already batches, so do not wait for a full kafka batch
		BatchTimeout: 10 * time.Millisecond,
	}
	logger.Info("Kafka event publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewPublisherWithWriter(w, cfg, logger)
}

// NewPublisherWithWriter allows injecting a test writer
func NewPublisherWithWriter(w Writer, cfg Config, logger *zap.Logger) *Publisher {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	p := &Publisher{
		writer:  w,
		logger:  logger,
		timeout: cfg.WriteTimeout,
		queue:   make(chan skafka.Message, cfg.QueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish marshals event to JSON and queues it keyed by key, so events for
// one payment or one owner land on the same partition.
func (p *Publisher) Publish(_ context.Context, key string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- skafka.Message{Key: []byte(key), Value: b}:
		observability.SetEventQueueDepth(len(p.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()

	for msg := range p.queue {
		batch := []skafka.Message{msg}
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-p.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		observability.SetEventQueueDepth(len(p.queue))
		p.write(batch)
	}
}

func (p *Publisher) write(batch []skafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, batch...)
	observability.RecordEventsDelivered(len(batch), err)
	if err != nil {
		p.logger.Warn("Failed to deliver events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Delivered events", zap.Int("count", len(batch)))
}

// Close stops accepting events, delivers what is queued and closes the writer
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.writer.Close()
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

var _ ports.EventPublisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NopPublisher) Close() error { return nil }
