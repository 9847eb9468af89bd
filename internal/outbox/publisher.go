package outbox

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type eventStore interface {
	Claim(ctx context.Context, limit int, lease time.Duration) ([]Record, error)
	MarkPublished(ctx context.Context, ids []string) error
}

type deliveryObserver interface {
	RecordOutboxPublished(n int)
}

// PublisherConfig tunes polling.
type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
	Lease     time.Duration
	// Observer is told how many events each batch delivered. Optional.
	Observer deliveryObserver
}

// Publisher relays outbox rows to Kafka. Rows are leased, written, then marked,
// so no database transaction stays open while Kafka is contacted.
type Publisher struct {
	store     eventStore
	writer    messageWriter
	logger    *zap.Logger
	pollEvery time.Duration
	batchSize int
	lease     time.Duration
	observer  deliveryObserver
}

// NewKafkaWriter builds the writer used in production, or nil when no brokers are configured.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	if len(brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

// NewPublisher wires a publisher. A nil writer disables publishing.
func NewPublisher(store eventStore, writer messageWriter, logger *zap.Logger, cfg PublisherConfig) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if w, ok := writer.(*kafka.Writer); ok && w == nil {
		writer = nil
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	return &Publisher{
		store:     store,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		lease:     cfg.Lease,
		observer:  cfg.Observer,
	}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.Error("outbox publish failed", zap.Error(err))
			}
		}
	}
}

// PublishBatch relays one batch and returns how many events were delivered.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.store.Claim(ctx, p.batchSize, p.lease)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		msgCtx := contextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		msg := kafka.Message{
			Topic: r.EventType,
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(r.ID)},
				{Key: "event_type", Value: []byte(r.EventType)},
				{Key: "aggregate_type", Value: []byte(r.AggregateType)},
			},
			Time: r.CreatedAt,
		}
		msg.Headers = injectTraceHeaders(msgCtx, msg.Headers)
		msgs = append(msgs, msg)
		ids = append(ids, r.ID)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.store.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	if p.observer != nil {
		p.observer.RecordOutboxPublished(len(ids))
	}
	p.logger.Debug("outbox batch published", zap.Int("count", len(ids)))
	return len(ids), nil
}
