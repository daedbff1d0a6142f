package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Event tells subscribers of a session that something changed.
	Event struct {
		Type          EventType `json:"type"`
		Session       string    `json:"session"`
		ParticipantID string    `json:"participant_id,omitempty"`
		At            time.Time `json:"at"`
	}

	// EventType ...
	EventType string

	// Broker fans session events out to in-process subscribers, such as the
	// open event streams of friends, and optionally to a Pub/Sub topic.
	Broker struct {
		mu      sync.Mutex
		subs    map[string]map[chan Event]struct{}
		service Service
		topicID string
	}
)

const (
	// EventItemsUpdated ...
	EventItemsUpdated EventType = "items_updated"

	// EventParticipantJoined ...
	EventParticipantJoined EventType = "participant_joined"

	// EventAllocationUpdated ...
	EventAllocationUpdated EventType = "allocation_updated"

	// EventSessionDeleted ...
	EventSessionDeleted EventType = "session_deleted"

	subscriberBuffer = 16
)

// NewBroker returns a broker that also publishes to topicID through service
// when both are set.
func NewBroker(service Service, topicID string) *Broker {
	return &Broker{
		subs:    make(map[string]map[chan Event]struct{}),
		service: service,
		topicID: topicID,
	}
}

// Subscribe returns a channel receiving the events of the session and a
// function that must be called to stop receiving them.
func (b *Broker) Subscribe(session string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[session] == nil {
		b.subs[session] = make(map[chan Event]struct{})
	}
	b.subs[session][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[session], ch)
			if len(b.subs[session]) == 0 {
				delete(b.subs, session)
			}
			close(ch)
		})
	}
}

// Subscribers ...
func (b *Broker) Subscribers(session string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[session])
}

// Publish delivers e to the subscribers of its session without blocking.
// Subscribers whose buffer is full miss the event.
func (b *Broker) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.Lock()
	for ch := range b.subs[e.Session] {
		select {
		case ch <- e:
		default:
			logrus.WithField("session", e.Session).Warn("dropping event for slow subscriber")
		}
	}
	b.mu.Unlock()

	b.forward(ctx, e)
}

func (b *Broker) forward(ctx context.Context, e Event) {
	if b.service == nil || b.topicID == "" {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		logrus.WithError(err).Error("error marshaling event")
		return
	}
	id, err := b.service.Publish(ctx, b.topicID, data, map[string]string{"eventType": string(e.Type)})
	if err != nil {
		if !errors.Is(err, ErrServiceNotConfigured) {
			logrus.WithError(err).WithField("session", e.Session).Error("error forwarding event to pubsub")
		}
		return
	}
	logrus.WithField("messageID", id).Debug("event forwarded to pubsub")
}
