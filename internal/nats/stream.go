package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream holding every journal event.
	StreamName = "WEBGEN_EVENTS"
	// SubjectPrefix precedes the session id in event subjects.
	SubjectPrefix = "webgen.events"

	maxAge = 30 * 24 * time.Hour
)

// Event types.
const (
	EventTypeRun          = "run"
	EventTypeFile         = "file"
	EventTypeTool         = "tool"
	EventTypeTemplate     = "template"
	EventTypeDependencies = "dependencies"
)

// Subject returns the subject events of session are published on. Dots and
// wildcards in the id are replaced so one session maps to one token.
func Subject(session string) string {
	return SubjectPrefix + "." + sanitize(session)
}

// AllSubjects matches every session.
func AllSubjects() string {
	return SubjectPrefix + ".>"
}

// SessionFromSubject extracts the session token from a subject.
func SessionFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix+".")
}

func sanitize(session string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(session)
}

// SetupStream creates or updates the events stream.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "webgen run journal",
		Subjects:    []string{AllSubjects()},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      maxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return stream, nil
}
