package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic      = "interview.slots.v1"
	DefaultBufferSize = 256
)

// Payload сообщение о событии слота в топике
type Payload struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	Date       string    `json:"date"`
	TimeOfDay  string    `json:"time_of_day"`
	SubjectID  string    `json:"subject_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Brokers    string
	Topic      string
	BufferSize int
}

// KafkaPublisher публикует события слотов в kafka.
// Handle не блокирует координатор: при переполнении буфера событие отбрасывается.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	queue   chan model.Event
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewKafkaPublisher(cfg PublisherConfig, collector *metrics.Collector, logger *zap.Logger) (*KafkaPublisher, error) {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer, cfg, collector, logger), nil
}

func newPublisher(w messageWriter, cfg PublisherConfig, collector *metrics.Collector, logger *zap.Logger) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer:  w,
		topic:   cfg.Topic,
		queue:   make(chan model.Event, cfg.BufferSize),
		metrics: collector,
		logger:  logger,
	}
}

// Handle ставит событие в очередь на публикацию
func (p *KafkaPublisher) Handle(event model.Event) {
	select {
	case p.queue <- event:
	default:
		p.metrics.ObserveEventDropped()
		p.logger.Warn("Event queue is full, dropping event",
			zap.String("event_id", event.ID.String()),
			zap.String("kind", string(event.Kind)))
	}
}

// Run публикует события из очереди до отмены контекста
func (p *KafkaPublisher) Run(ctx context.Context) error {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("Failed to close kafka writer", zap.Error(err))
		}
	}()

	p.logger.Info("Kafka publisher started", zap.String("topic", p.topic))
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case event := <-p.queue:
			p.publish(ctx, event)
		}
	}
}

// drain дописывает оставшиеся события с коротким таймаутом
func (p *KafkaPublisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case event := <-p.queue:
			p.publish(ctx, event)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event model.Event) {
	msg, err := encodeMessage(event)
	if err != nil {
		p.logger.Error("Failed to encode event", zap.Error(err))
		return
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.ObserveEventDropped()
		p.logger.Error("Failed to publish event",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
		return
	}
	p.metrics.ObserveEventPublished(string(event.Kind))
}

func encodeMessage(event model.Event) (kafka.Message, error) {
	payload := Payload{
		EventID:    event.ID.String(),
		Kind:       string(event.Kind),
		Date:       model.FormatDate(event.Date),
		TimeOfDay:  event.TimeOfDay,
		SubjectID:  event.SubjectID,
		OwnerID:    event.OwnerID,
		OccurredAt: event.OccurredAt.UTC(),
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	return kafka.Message{
		// один ключ на слот: события слота попадают в одну партицию по порядку
		Key:   []byte(model.SlotKey(event.Date, event.TimeOfDay)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(payload.EventID)},
			{Key: "event_type", Value: []byte(payload.Kind)},
		},
	}, nil
}

// SplitBrokers разбирает список брокеров через запятую
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
