// Package events relays follow events from the outbox table to Kafka.
package events

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers one keyed message.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// KafkaConfig selects the brokers and topic follow events go to.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes synchronously and waits for all in-sync replicas.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher. Messages with the same key land on
// the same partition, so events for one author stay ordered.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// AuthorKey is the partition key for events about authorID.
func AuthorKey(authorID uint) string {
	return strconv.FormatUint(uint64(authorID), 10)
}
