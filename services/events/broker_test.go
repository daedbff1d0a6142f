package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/matheuscscp/fairshare/services/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	topics     []string
	data       [][]byte
	attributes []map[string]string
	err        error
}

func (f *fakeService) Publish(ctx context.Context, topicID string, data []byte, attributes map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topics = append(f.topics, topicID)
	f.data = append(f.data, data)
	f.attributes = append(f.attributes, attributes)
	return "1", nil
}

func (f *fakeService) Close() {}

func TestBrokerDeliversPerSession(t *testing.T) {
	b := events.NewBroker(nil, "")
	ctx := context.Background()

	abc, cancelABC := b.Subscribe("abc")
	defer cancelABC()
	xyz, cancelXYZ := b.Subscribe("xyz")
	defer cancelXYZ()

	b.Publish(ctx, events.Event{Type: events.EventParticipantJoined, Session: "abc", ParticipantID: "p1"})

	e := <-abc
	assert.Equal(t, events.EventParticipantJoined, e.Type)
	assert.Equal(t, "p1", e.ParticipantID)
	assert.False(t, e.At.IsZero())
	assert.Empty(t, xyz)
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := events.NewBroker(nil, "")
	ch, cancel := b.Subscribe("abc")
	assert.Equal(t, 1, b.Subscribers("abc"))

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers("abc"))
	_, open := <-ch
	assert.False(t, open)

	b.Publish(context.Background(), events.Event{Type: events.EventItemsUpdated, Session: "abc"})
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := events.NewBroker(nil, "")
	ch, cancel := b.Subscribe("abc")
	defer cancel()

	for i := 0; i < 100; i++ {
		b.Publish(context.Background(), events.Event{Type: events.EventAllocationUpdated, Session: "abc"})
	}
	assert.Equal(t, 16, len(ch))
}

func TestBrokerForwardsToPubSub(t *testing.T) {
	svc := &fakeService{}
	b := events.NewBroker(svc, "fairshare-events")

	b.Publish(context.Background(), events.Event{Type: events.EventSessionDeleted, Session: "abc"})

	require.Len(t, svc.data, 1)
	assert.Equal(t, "fairshare-events", svc.topics[0])
	assert.Equal(t, map[string]string{"eventType": "session_deleted"}, svc.attributes[0])
	var e events.Event
	require.NoError(t, json.Unmarshal(svc.data[0], &e))
	assert.Equal(t, "abc", e.Session)
}

func TestBrokerIgnoresUnconfiguredPubSub(t *testing.T) {
	svc, err := events.NewService(context.Background(), "")
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Publish(context.Background(), "topic", nil, nil)
	assert.ErrorIs(t, err, events.ErrServiceNotConfigured)

	b := events.NewBroker(svc, "topic")
	b.Publish(context.Background(), events.Event{Type: events.EventItemsUpdated, Session: "abc"})
}
