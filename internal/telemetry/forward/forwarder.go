// Package forward moves ledger events from the Kafka topic into Loki.
package forward

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const pushTimeout = 10 * time.Second

// Reader is the consuming side of a Kafka consumer group.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher stores one JSON event line.
type Pusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// Forwarder copies every message from a Reader to a Pusher.
type Forwarder struct {
	reader Reader
	pusher Pusher
	pushed int
	failed int
}

// New returns a Forwarder.
func New(reader Reader, pusher Pusher) *Forwarder {
	return &Forwarder{reader: reader, pusher: pusher}
}

// Run forwards until ctx is cancelled. Read and push failures are logged and skipped; a failed
// push does not stop the group from committing the offset, so Loki gaps are possible.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("forward: stopped, %d pushed, %d failed", f.pushed, f.failed)
				return nil
			}
			log.Printf("forward: read: %v", err)
			continue
		}
		f.push(ctx, msg)
	}
}

func (f *Forwarder) push(ctx context.Context, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := f.pusher.PushEventJSON(ctx, msg.Value); err != nil {
		f.failed++
		log.Printf("forward: push partition %d offset %d: %v", msg.Partition, msg.Offset, err)
		return
	}
	f.pushed++
}

// Stats returns the pushed and failed counts.
func (f *Forwarder) Stats() (pushed, failed int) {
	return f.pushed, f.failed
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}
