// Package journal records run activity as events on a JetStream stream and
// replays them per session.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/nats"
)

const fetchBatch = 256

// Event is one journal entry.
type Event struct {
	ID      string          `json:"id"`
	Session string          `json:"session"`
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Data    string          `json:"data"`
	Time    time.Time       `json:"time"`
}

// Store publishes and replays events.
type Store struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	retry  errors.RetryConfig
}

// NewStore wraps an events stream created by nats.SetupStream.
func NewStore(js jetstream.JetStream, stream jetstream.Stream) *Store {
	return &Store{js: js, stream: stream, retry: errors.DefaultRetryConfig()}
}

// NewSessionID returns a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// PublishEvent stores event and returns its stream sequence. ID and Time
// are filled in when empty.
func (s *Store) PublishEvent(ctx context.Context, event Event) (uint64, error) {
	if event.Session == "" {
		return 0, errors.NewValidationError("session", "", "session is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := errors.RetryWithResult(ctx, s.retry, func() (*jetstream.PubAck, error) {
		return s.js.Publish(ctx, nats.Subject(event.Session), data)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to publish %s/%s event: %w", event.Type, event.Action, err)
	}
	logger.Debug("journal: %s %s/%s seq=%d", event.Session, event.Type, event.Action, ack.Sequence)
	return ack.Sequence, nil
}

// List replays the events of session in publish order. An empty session
// replays every session.
func (s *Store) List(ctx context.Context, session string) ([]Event, error) {
	subject := nats.AllSubjects()
	if session != "" {
		subject = nats.Subject(session)
	}

	consumer, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	var events []Event
	for {
		batch, err := consumer.FetchNoWait(fetchBatch)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events: %w", err)
		}
		n := 0
		for msg := range batch.Messages() {
			n++
			var ev Event
			if err := json.Unmarshal(msg.Data(), &ev); err != nil {
				logger.Warn("journal: skipping malformed event on %s: %v", msg.Subject(), err)
				continue
			}
			events = append(events, ev)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) {
			return nil, fmt.Errorf("failed to fetch events: %w", err)
		}
		if n < fetchBatch {
			return events, nil
		}
	}
}

// SessionSummary aggregates the events of one session.
type SessionSummary struct {
	Session string
	Events  int
	First   time.Time
	Last    time.Time
}

// Sessions summarizes every journaled session, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	events, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	index := make(map[string]*SessionSummary)
	lastSeen := make(map[string]int)
	var order []string
	for i, ev := range events {
		sum, ok := index[ev.Session]
		if !ok {
			sum = &SessionSummary{Session: ev.Session, First: ev.Time}
			index[ev.Session] = sum
			order = append(order, ev.Session)
		}
		sum.Events++
		sum.Last = ev.Time
		lastSeen[ev.Session] = i
	}

	out := make([]SessionSummary, 0, len(order))
	for _, name := range order {
		out = append(out, *index[name])
	}
	slices.SortFunc(out, func(a, b SessionSummary) int {
		return lastSeen[b.Session] - lastSeen[a.Session]
	})
	return out, nil
}
