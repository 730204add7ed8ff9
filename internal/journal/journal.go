package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/scim-mock-server/internal/observability"
	"github.com/noah-isme/scim-mock-server/internal/resource"
)

// Separator is written on its own line after every record.
const Separator = "---"

// Operation names the request that produced a journal entry.
type Operation string

// Journaled operations.
const (
	OperationCreate  Operation = "create"
	OperationReplace Operation = "replace"
	OperationDelete  Operation = "delete"
)

// Entry is one record appended to a resource journal.
type Entry struct {
	Kind       resource.Kind
	Operation  Operation
	ResourceID string
	Record     string
	RequestID  string
	RecordedAt time.Time
}

// Mirror receives a copy of every entry after it has been written to disk.
// Calls for one kind are serialized and arrive in file order.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, entry Entry) error
}

// Journal appends records to one file per resource kind. Appends to the same
// kind are serialized so records never interleave.
type Journal struct {
	dir     string
	mu      sync.Mutex
	locks   map[resource.Kind]*sync.Mutex
	mirrors []Mirror
	logger  zerolog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option customises a Journal.
type Option func(*Journal)

// WithMirrors adds secondary sinks. Nil mirrors are ignored.
func WithMirrors(mirrors ...Mirror) Option {
	return func(j *Journal) {
		for _, m := range mirrors {
			if m != nil {
				j.mirrors = append(j.mirrors, m)
			}
		}
	}
}

// WithLogger sets the logger used to report mirror failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(j *Journal) {
		j.logger = logger.With().Str("component", "journal").Logger()
	}
}

// WithClock overrides the time source used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// New creates the journal directory if needed and returns a Journal writing into it.
func New(dir string, opts ...Option) (*Journal, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("journal: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory %s: %w", dir, err)
	}

	j := &Journal{
		dir:    dir,
		locks:  make(map[resource.Kind]*sync.Mutex),
		logger: zerolog.New(io.Discard),
		tracer: otel.Tracer("github.com/noah-isme/scim-mock-server/internal/journal"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Dir returns the directory holding the journal files.
func (j *Journal) Dir() string {
	return j.dir
}

// Path returns the journal file of kind.
func (j *Journal) Path(kind resource.Kind) string {
	return filepath.Join(j.dir, kind.LogFileName())
}

// Append writes entry to its kind's file followed by the separator line and
// then hands it to every mirror before releasing the kind's lock. Only the
// file write can fail the call.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = j.now().UTC()
	}

	kind := entry.Kind.String()
	spanCtx, span := j.tracer.Start(ctx, "journal.append", trace.WithAttributes(
		attribute.String("journal.resource", kind),
		attribute.String("journal.operation", string(entry.Operation)),
	))
	defer span.End()

	lock := j.lockFor(entry.Kind)
	lock.Lock()
	defer lock.Unlock()

	if err := j.write(entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal append failed")
		observability.JournalFailures().WithLabelValues(kind).Inc()
		return err
	}

	observability.JournalRecords().WithLabelValues(kind, string(entry.Operation)).Inc()
	j.mirror(spanCtx, entry)
	return nil
}

// write expects the kind's lock to be held.
func (j *Journal) write(entry Entry) error {
	path := j.Path(entry.Kind)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", path, err)
	}

	if _, err := file.WriteString(entry.Record + "\n" + Separator + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("journal: append %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("journal: close %s: %w", path, err)
	}
	return nil
}

func (j *Journal) mirror(ctx context.Context, entry Entry) {
	for _, m := range j.mirrors {
		if err := m.Mirror(ctx, entry); err != nil {
			observability.MirrorFailures().WithLabelValues(m.Name()).Inc()
			j.logger.Warn().
				Err(err).
				Str("sink", m.Name()).
				Str("resource", entry.Kind.String()).
				Msg("failed to mirror journal entry")
		}
	}
}

func (j *Journal) lockFor(kind resource.Kind) *sync.Mutex {
	j.mu.Lock()
	defer j.mu.Unlock()

	lock, ok := j.locks[kind]
	if !ok {
		lock = &sync.Mutex{}
		j.locks[kind] = lock
	}
	return lock
}
