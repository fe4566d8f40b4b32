// Package tracing records a tree of timed spans per handled message and
// writes it to slog when the message is done. The message id is the trace
// id.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

type Span struct {
	name    string
	traceID string
	depth   int
	start   time.Time

	mu       sync.Mutex
	elapsed  time.Duration
	attrs    []slog.Attr
	children []*Span
}

// Start begins a root span for traceID.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{name: name, traceID: traceID, start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChild begins a span under the one in ctx. Without a parent the span
// is a root with an empty trace id.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return Start(ctx, name, "")
	}
	s := &Span{name: name, traceID: parent.traceID, depth: parent.depth + 1, start: time.Now()}
	parent.mu.Lock()
	parent.children = append(parent.children, s)
	parent.mu.Unlock()
	return context.WithValue(ctx, spanKey{}, s), s
}

func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) Name() string    { return s.name }
func (s *Span) TraceID() string { return s.traceID }

// SetAttr records key=value; a repeated key keeps the latest value.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = slog.AnyValue(value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// Attr returns the value recorded for key.
func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

// End fixes the span's duration. Only the first call counts.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elapsed == 0 {
		s.elapsed = max(time.Since(s.start), time.Nanosecond)
	}
}

func (s *Span) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes s and its descendants, parents first, one debug record each.
func (s *Span) Log(logger *slog.Logger) {
	s.mu.Lock()
	args := make([]any, 0, 4+len(s.attrs))
	args = append(args,
		slog.String("trace_id", s.traceID),
		slog.String("span", s.name),
		slog.Int64("duration_us", s.elapsed.Microseconds()),
		slog.Int("depth", s.depth),
	)
	for _, a := range s.attrs {
		args = append(args, a)
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.Debug("span", args...)
	for _, c := range children {
		c.Log(logger)
	}
}
