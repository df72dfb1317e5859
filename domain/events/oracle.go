package events

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// RandomnessRequestMessage is the wire form of a randomness request sent to
// the oracle
type RandomnessRequestMessage struct {
	RequestID string `json:"request_id"`
	RoundID   int64  `json:"round_id"`
}

// RandomnessFulfilledMessage is delivered by the oracle. RandomValue is a
// decimal uint256.
type RandomnessFulfilledMessage struct {
	RequestID   string `json:"request_id"`
	RoundID     int64  `json:"round_id"`
	RandomValue string `json:"random_value"`
}

// Value parses RandomValue
func (m RandomnessFulfilledMessage) Value() (*big.Int, error) {
	v, ok := new(big.Int).SetString(m.RandomValue, 10)
	if !ok {
		return nil, fmt.Errorf("random value %q is not a decimal integer", m.RandomValue)
	}
	return v, nil
}

// DecodeRandomnessFulfilled parses a fulfillment payload
func DecodeRandomnessFulfilled(data []byte) (RandomnessFulfilledMessage, error) {
	var msg RandomnessFulfilledMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode randomness fulfillment: %w", err)
	}
	if msg.RoundID <= 0 {
		return msg, fmt.Errorf("randomness fulfillment has invalid round id %d", msg.RoundID)
	}
	return msg, nil
}
