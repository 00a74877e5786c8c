package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// Span is a timed operation such as one lint pass or one analyzer run.
// A nil or disabled span is inert.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Begin starts a span under parent (0 for a root span) and emits its
// begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	sp := &Span{tracer: Nop, started: time.Now()}
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return sp
	}
	sp.tracer = t
	sp.id = spanCounter.Add(1)
	sp.parent = parent
	sp.scope = scope
	sp.name = name
	t.Emit(&Event{
		Time:     sp.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   sp.id,
		ParentID: parent,
		Name:     name,
	})
	return sp
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// WithExtra attaches a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s.ID() == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// End emits the end event and returns how long the span ran.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	elapsed := time.Since(s.started)
	if s.id == 0 {
		return elapsed
	}
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Elapsed:  elapsed,
		Extra:    s.extra,
	})
	return elapsed
}

type tracerKey struct{}

type spanKey struct{}

// WithTracer returns ctx carrying t. A nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// parentID returns the ID of the span carried by ctx.
func parentID(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	sp, _ := ctx.Value(spanKey{}).(*Span)
	return sp.ID()
}

// BeginContext starts a span parented to the span in ctx and returns a
// context carrying the new span.
func BeginContext(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	sp := Begin(FromContext(ctx), scope, name, parentID(ctx))
	if sp.ID() != 0 {
		ctx = context.WithValue(ctx, spanKey{}, sp)
	}
	return ctx, sp
}
