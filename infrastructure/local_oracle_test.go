package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSink(out *[][]byte) FulfillmentSink {
	return func(ctx context.Context, data []byte) error {
		*out = append(*out, data)
		return nil
	}
}

func TestLocalOracle_Fulfill(t *testing.T) {
	t.Parallel()

	var delivered [][]byte
	source := bytes.NewReader(bytes.Repeat([]byte{0xff}, 32))
	oracle := NewLocalOracle(source, captureSink(&delivered))

	require.NoError(t, oracle.Fulfill(context.Background(), events.RandomnessRequestMessage{RequestID: "req-1", RoundID: 12}))
	require.Len(t, delivered, 1)

	msg, err := events.DecodeRandomnessFulfilled(delivered[0])
	require.NoError(t, err)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.Equal(t, int64(12), msg.RoundID)

	value, err := msg.Value()
	require.NoError(t, err)
	largest := new(big.Int).Sub(interfaces.RandomValueBound, big.NewInt(1))
	assert.Equal(t, 0, value.Cmp(largest))
}

func TestLocalOracle_ValuesStayInRange(t *testing.T) {
	t.Parallel()

	var delivered [][]byte
	oracle := NewLocalOracle(nil, captureSink(&delivered))
	for i := 0; i < 20; i++ {
		require.NoError(t, oracle.Fulfill(context.Background(), events.RandomnessRequestMessage{RoundID: 1}))
	}

	for _, data := range delivered {
		msg, err := events.DecodeRandomnessFulfilled(data)
		require.NoError(t, err)
		value, err := msg.Value()
		require.NoError(t, err)
		assert.True(t, value.Sign() >= 0)
		assert.True(t, value.Cmp(interfaces.RandomValueBound) < 0)
	}
}

func TestLocalOracle_HandleMessage(t *testing.T) {
	t.Parallel()

	var delivered [][]byte
	oracle := NewLocalOracle(nil, captureSink(&delivered))

	envelope, err := NewEventEnvelope(events.RandomnessRequestedEvent{RoundID: 5, RequestID: "req-5"})
	require.NoError(t, err)
	data, err := json.Marshal(envelope)
	require.NoError(t, err)

	require.NoError(t, oracle.HandleMessage(context.Background(), data))
	require.Len(t, delivered, 1)
	msg, err := events.DecodeRandomnessFulfilled(delivered[0])
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.RoundID)
	assert.Equal(t, "req-5", msg.RequestID)

	// Malformed requests are acknowledged and dropped
	assert.NoError(t, oracle.HandleMessage(context.Background(), []byte("{")))
	assert.Len(t, delivered, 1)
}

func TestLocalOracle_HandleEvent(t *testing.T) {
	t.Parallel()

	var delivered [][]byte
	oracle := NewLocalOracle(nil, captureSink(&delivered))

	require.NoError(t, oracle.HandleEvent(context.Background(), events.RandomnessRequestedEvent{RoundID: 2, RequestID: "r"}))
	assert.Len(t, delivered, 1)

	assert.Error(t, oracle.HandleEvent(context.Background(), events.RoundOpenedEvent{RoundID: 2}))
}

func TestLocalOracle_DeliveryFailure(t *testing.T) {
	t.Parallel()

	oracle := NewLocalOracle(nil, func(ctx context.Context, data []byte) error {
		return errors.New("stream unavailable")
	})
	err := oracle.Fulfill(context.Background(), events.RandomnessRequestMessage{RoundID: 3})
	assert.ErrorContains(t, err, "round 3")
	assert.ErrorContains(t, err, "stream unavailable")
}
