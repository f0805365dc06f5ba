package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()
	bus, err := NewEventBus("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, TopicRoundsUpdated)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(TopicRoundsUpdated, NewMessage("42", []byte(`{"rounds":[]}`))))

	select {
	case msg := <-ch:
		assert.Equal(t, "42", msg.Metadata.Get(MetadataMatchID))
		assert.JSONEq(t, `{"rounds":[]}`, string(msg.Payload))
		assert.NotEmpty(t, msg.UUID)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestEventBus_SubscriptionEndsWithContext(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, TopicRoundsUpdated)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "match.rounds.updated.42", Subject(TopicRoundsUpdated, "42"))
	assert.Equal(t, "match.rounds.updated", Subject(TopicRoundsUpdated, ""))
}
