package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRandomnessFulfilled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"request_id":"r1","round_id":4,"random_value":"123"}`, false},
		{"not json", `round 4`, true},
		{"missing round", `{"random_value":"1"}`, true},
		{"negative round", `{"round_id":-2,"random_value":"1"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := DecodeRandomnessFulfilled([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "r1", msg.RequestID)
			assert.Equal(t, int64(4), msg.RoundID)
		})
	}
}

func TestRandomnessFulfilledMessage_Value(t *testing.T) {
	t.Parallel()

	// 2^256 - 1 survives the decimal round trip exactly
	largest := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	v, err := RandomnessFulfilledMessage{RandomValue: largest}.Value()
	require.NoError(t, err)
	assert.Equal(t, largest, v.String())
	assert.Equal(t, 256, v.BitLen())

	for _, bad := range []string{"", "0x10", "1.5", "12abc"} {
		_, err := RandomnessFulfilledMessage{RandomValue: bad}.Value()
		assert.Error(t, err, bad)
	}
}
