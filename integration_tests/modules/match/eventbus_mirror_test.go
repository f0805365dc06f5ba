package matchintegrationtests

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/scuffedaim/matchview/app/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_MirrorsUpdatesToNATS(t *testing.T) {
	env := requireEnv(t)

	bus, err := eventbus.NewEventBus(env.NatsURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer bus.Close()

	nc, err := nats.Connect(env.NatsURL)
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(eventbus.TopicRoundsUpdated + ".*")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	payload := []byte(`{"match_id":"42","rounds":[]}`)
	require.NoError(t, bus.Publish(eventbus.TopicRoundsUpdated, eventbus.NewMessage("42", payload)))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "match.rounds.updated.42", msg.Subject)
	assert.JSONEq(t, string(payload), string(msg.Data))
}
