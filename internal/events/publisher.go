package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jengzang/proximity-backend-go/internal/models"
)

// Event types
const (
	TypeFilteredReading = "filtered_reading"
	TypeDistanceReport  = "distance_report"
)

// Envelope is the JSON document written for every event
type Envelope struct {
	Type      string      `json:"type"`
	Key       string      `json:"key"`
	EmittedAt time.Time   `json:"emittedAt"`
	Payload   interface{} `json:"payload"`
}

// Publisher fans out derived records. Publishing is best effort: the store
// stays the source of truth and failures never fail an ingest request.
type Publisher interface {
	PublishFiltered(ctx context.Context, f models.FilteredReading)
	PublishDistanceReport(ctx context.Context, d models.DistanceReport)
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) PublishFiltered(context.Context, models.FilteredReading)      {}
func (Nop) PublishDistanceReport(context.Context, models.DistanceReport) {}
func (Nop) Close() error                                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one Kafka topic keyed by reading key or pair key
type KafkaPublisher struct {
	writer  messageWriter
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Config encapsulates the runtime options required to publish events
type Config struct {
	Brokers []string
	Topic   string
}

// New returns a Kafka publisher, or Nop when no broker is configured
func New(cfg Config, log *slog.Logger) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		log.Info("event publisher disabled")
		return Nop{}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("event topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	log.Info("event publisher enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newKafkaPublisher(w, log), nil
}

func newKafkaPublisher(w messageWriter, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log, timeout: 5 * time.Second, now: time.Now}
}

// PublishFiltered emits an admitted filtered reading
func (p *KafkaPublisher) PublishFiltered(ctx context.Context, f models.FilteredReading) {
	p.publish(ctx, TypeFilteredReading, f.Key, f)
}

// PublishDistanceReport emits an upserted distance report
func (p *KafkaPublisher) PublishDistanceReport(ctx context.Context, d models.DistanceReport) {
	p.publish(ctx, TypeDistanceReport, d.PairKey(), d)
}

func (p *KafkaPublisher) publish(ctx context.Context, typ, key string, payload interface{}) {
	value, err := json.Marshal(Envelope{Type: typ, Key: key, EmittedAt: p.now(), Payload: payload})
	if err != nil {
		p.log.Error("event marshal failed", "type", typ, "key", key, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(typ)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("event publish failed", "type", typ, "key", key, "err", err)
	}
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
