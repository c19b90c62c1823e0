// Package instrument provides a span timer that travels in a context.Context.
//
// Code that wants timings wraps a unit of work in a span:
//
//	defer instrument.FromContext(ctx).Time("layer3 forward")()
//
// FromContext returns nil when no timer is attached, and a nil *Timer
// ignores every call, so instrumented code never checks.
package instrument

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

// Span holds the accumulated time of one named span.
type Span struct {
	Name  string
	Total time.Duration
	Count int
}

// Timer accumulates span durations by name. It is safe for concurrent use.
type Timer struct {
	mu    sync.Mutex
	spans map[string]*Span
	now   func() time.Time
}

// NewTimer creates an empty timer.
func NewTimer() *Timer {
	return &Timer{spans: make(map[string]*Span), now: time.Now}
}

// WithTimer returns a context carrying t.
func WithTimer(ctx context.Context, t *Timer) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the timer carried by ctx, or nil.
func FromContext(ctx context.Context) *Timer {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(contextKey{}).(*Timer)
	return t
}

// Time starts a span and returns the function that ends it.
func (t *Timer) Time(name string) func() {
	if t == nil {
		return func() {}
	}
	start := t.now()
	return func() {
		t.Add(name, t.now().Sub(start))
	}
}

// Add records d against the named span.
func (t *Timer) Add(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.spans[name]
	if !ok {
		s = &Span{Name: name}
		t.spans[name] = s
	}
	s.Total += d
	s.Count++
}

// Spans returns a snapshot of all spans sorted by descending total time.
func (t *Timer) Spans() []Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]Span, 0, len(t.spans))
	for _, s := range t.spans {
		out = append(out, *s)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Reset discards all spans.
func (t *Timer) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make(map[string]*Span)
}

// Report writes one line per span with its share of the summed time.
func (t *Timer) Report(w io.Writer) error {
	spans := t.Spans()
	var total time.Duration
	for _, s := range spans {
		total += s.Total
	}
	if _, err := fmt.Fprintln(w, "=== TIMING ==="); err != nil {
		return err
	}
	for _, s := range spans {
		share := 0.0
		if total > 0 {
			share = float64(s.Total) / float64(total) * 100
		}
		if _, err := fmt.Fprintf(w, "  %-28s %12v  %6d calls  %5.1f%%\n", s.Name, s.Total, s.Count, share); err != nil {
			return err
		}
	}
	return nil
}
