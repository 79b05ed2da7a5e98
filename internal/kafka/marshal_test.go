package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	t.Parallel()

	type payload struct {
		OrderID string `json:"order_id"`
	}
	got, err := UnwrapPayload[payload](json.RawMessage(`{"order_id":"o-1"}`))
	require.NoError(t, err)
	require.Equal(t, "o-1", got.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{`))
	require.ErrorContains(t, err, "decode payload")
}

func TestEventHeaders(t *testing.T) {
	t.Parallel()

	m := kafka.Message{Headers: EventHeaders("OrderCreated", 1)}
	require.Equal(t, "OrderCreated", HeaderValue(m, HeaderEventType))
	require.Equal(t, "1", HeaderValue(m, HeaderEventVersion))
	require.Empty(t, HeaderValue(m, "missing"))
}
