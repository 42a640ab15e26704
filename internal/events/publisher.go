// Package events publishes relationship change events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/pkg/circuitbreaker"
	"github.com/rolodex/rolodex/api/internal/pkg/metrics"
)

// KafkaPublisher writes events to a Kafka topic. Messages are keyed by owner
// id so one owner's events stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	breaker  *circuitbreaker.Breaker
	logger   *zap.Logger
}

// ProducerConfig returns the sarama configuration used for event producers
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Timeout = 5 * time.Second
	return cfg
}

// NewKafkaPublisher connects a sync producer to the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	logger = logger.Named("events")
	cbCfg := circuitbreaker.DefaultConfig("kafka")
	cbCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		metrics.SetBreakerState(name, int(to))
		logger.Warn("event publisher circuit changed",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  circuitbreaker.New(cbCfg),
		logger:   logger,
	}
}

// Publish sends the events as one batch
func (p *KafkaPublisher) Publish(ctx context.Context, events ...domain.RelationshipEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, ev := range events {
		msg, err := p.message(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	err := p.breaker.Do(ctx, func(context.Context) error {
		return p.producer.SendMessages(msgs)
	})
	if err != nil {
		var perrs sarama.ProducerErrors
		if errors.As(err, &perrs) {
			return fmt.Errorf("failed to publish %d of %d events: %w", len(perrs), len(msgs), err)
		}
		return fmt.Errorf("failed to publish events: %w", err)
	}

	p.logger.Debug("events published", zap.Int("count", len(msgs)), zap.String("topic", p.topic))
	return nil
}

func (p *KafkaPublisher) message(ev domain.RelationshipEvent) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OwnerID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
		Timestamp: ev.OccurredAt,
	}, nil
}

// Close closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher discards events. It is used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements the publisher interface
func (NopPublisher) Publish(context.Context, ...domain.RelationshipEvent) error {
	return nil
}
