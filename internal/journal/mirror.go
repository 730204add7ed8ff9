package journal

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/scim-mock-server/internal/resource"
)

// Event is the JSON document mirrors publish for each entry.
type Event struct {
	Source     string    `json:"source"`
	Resource   string    `json:"resource"`
	Operation  Operation `json:"operation"`
	ResourceID string    `json:"resource_id,omitempty"`
	Record     string    `json:"record"`
	RequestID  string    `json:"request_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func newEvent(source string, entry Entry) Event {
	return Event{
		Source:     source,
		Resource:   entry.Kind.String(),
		Operation:  entry.Operation,
		ResourceID: entry.ResourceID,
		Record:     entry.Record,
		RequestID:  entry.RequestID,
		RecordedAt: entry.RecordedAt,
	}
}

// RedisMirror appends every entry to a Redis list per resource kind so a test
// harness can read back what the client sent.
type RedisMirror struct {
	client  redis.Cmdable
	keyBase string
	source  string
}

// NewRedisMirror returns a mirror pushing to "<channelBase>:<kind>".
func NewRedisMirror(client redis.Cmdable, channelBase string) *RedisMirror {
	return &RedisMirror{client: client, keyBase: channelBase, source: uuid.NewString()}
}

func (m *RedisMirror) Name() string { return "redis" }

// Key returns the list key holding entries of kind.
func (m *RedisMirror) Key(kind resource.Kind) string {
	if m.keyBase == "" {
		return kind.String()
	}
	return m.keyBase + ":" + kind.String()
}

func (m *RedisMirror) Mirror(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(newEvent(m.source, entry))
	if err != nil {
		return err
	}
	return m.client.RPush(ctx, m.Key(entry.Kind), payload).Err()
}

// Publisher is the subset of *nats.Conn used by NATSMirror.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSMirror publishes every entry on a subject per resource kind.
type NATSMirror struct {
	conn        Publisher
	subjectBase string
	source      string
}

// NewNATSMirror returns a mirror publishing on "<channelBase>.<kind>", with
// ':' in channelBase turned into '.'.
func NewNATSMirror(conn Publisher, channelBase string) *NATSMirror {
	return &NATSMirror{
		conn:        conn,
		subjectBase: strings.ReplaceAll(channelBase, ":", "."),
		source:      uuid.NewString(),
	}
}

func (m *NATSMirror) Name() string { return "nats" }

// Subject returns the subject entries of kind are published on.
func (m *NATSMirror) Subject(kind resource.Kind) string {
	token := strings.ReplaceAll(kind.String(), "/", ".")
	if m.subjectBase == "" {
		return token
	}
	return m.subjectBase + "." + token
}

func (m *NATSMirror) Mirror(_ context.Context, entry Entry) error {
	payload, err := json.Marshal(newEvent(m.source, entry))
	if err != nil {
		return err
	}
	return m.conn.Publish(m.Subject(entry.Kind), payload)
}
