package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
)

func testEvent() entities.TransferEvent {
	return entities.TransferEvent{
		TransferID: uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"),
		From:       entities.TransferStatusPending,
		To:         entities.TransferStatusConfirming,
		Method:     entities.TransferMethodCCTP,
		TxHash:     "0xburn",
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", string(key))
		assert.Equal(t, "transfers", msg.Topic)

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var got entities.TransferEvent
		require.NoError(t, json.Unmarshal(value, &got))
		assert.Equal(t, entities.TransferStatusConfirming, got.To)
		assert.Equal(t, "0xburn", got.TxHash)

		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "transfer.confirming", string(msg.Headers[0].Value))
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "transfers", zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("broker unavailable"))

	p := NewKafkaPublisherWithProducer(producer, "transfers", zap.NewNop())
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorContains(t, err, "broker unavailable")
	require.NoError(t, p.Close())
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Transfer status changed", entry.Message)
	assert.Equal(t, "confirming", entry.ContextMap()["to"])
}
