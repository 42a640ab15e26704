package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/pkg/circuitbreaker"
)

func newEvent(t domain.EventType) domain.RelationshipEvent {
	return domain.NewRelationshipEvent(t, "owner-1", domain.Ref(domain.KindOrganization, uuid.New()))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	pub := NewKafkaPublisherWithProducer(producer, "rolodex.relationships", zap.NewNop())

	ev := newEvent(domain.EventEdgeAdded)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got domain.RelationshipEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != ev.ID || got.Type != domain.EventEdgeAdded {
			return errors.New("unexpected event payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndSucceed()

	err := pub.Publish(context.Background(), ev, newEvent(domain.EventEntityRenamed))
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	pub := NewKafkaPublisherWithProducer(producer, "topic", zap.NewNop())

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := pub.Publish(context.Background(), newEvent(domain.EventEdgeRemoved))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish")
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_NoEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	pub := NewKafkaPublisherWithProducer(producer, "topic", zap.NewNop())

	assert.NoError(t, pub.Publish(context.Background()))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_FailsFastWhenBrokerIsDown(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	pub := NewKafkaPublisherWithProducer(producer, "topic", zap.NewNop())

	maxFailures := circuitbreaker.DefaultConfig("kafka").MaxFailures
	for i := 0; i < maxFailures; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
		require.Error(t, pub.Publish(context.Background(), newEvent(domain.EventEdgeAdded)))
	}

	// the mock fails the test if another message reaches the producer
	err := pub.Publish(context.Background(), newEvent(domain.EventEdgeAdded))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	pub := NewKafkaPublisherWithProducer(producer, "topic", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pub.Publish(ctx, newEvent(domain.EventEdgeAdded)), context.Canceled)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_MessageKeyedByOwner(t *testing.T) {
	pub := &KafkaPublisher{topic: "topic", logger: zap.NewNop()}
	ev := newEvent(domain.EventEntityDeleted)

	msg, err := pub.message(ev)
	require.NoError(t, err)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "owner-1", string(key))
	assert.Equal(t, "topic", msg.Topic)
	assert.Equal(t, []byte("entity.deleted"), msg.Headers[0].Value)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), newEvent(domain.EventEdgeAdded)))
}
