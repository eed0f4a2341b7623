// Package producer publishes ledger events to Kafka for the Loki forwarder.
package producer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"attendance-ledger/backend/internal/telemetry/domain"
)

const writeTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer is a telemetry.EventEmitter backed by a Kafka topic. Events are keyed by session
// id, so one session's events land on one partition in order.
type KafkaProducer struct {
	w messageWriter
}

// NewKafkaProducer returns a producer for topic. It returns (nil, nil) when brokers or topic is
// empty; a nil *KafkaProducer ignores Emit and Close.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	return &KafkaProducer{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}, nil
}

// Emit writes event as one JSON message.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.Event) error {
	if p == nil || event == nil {
		return nil
	}
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		log.Printf("producer: write %s: %v", event.EventType, err)
		return err
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaProducer) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}

func encodeMessage(event *domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}},
		Time:    event.CreatedAt,
	}
	if event.SessionID != "" {
		msg.Key = []byte(event.SessionID)
	}
	return msg, nil
}
