package instrument

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimer_Spans(t *testing.T) {
	timer := NewTimer()
	timer.now = fakeClock(time.Millisecond)

	timer.Time("layer1 forward")()
	timer.Time("layer1 forward")()
	timer.Add("layer2 backward", 5*time.Millisecond)

	spans := timer.Spans()
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Name: "layer2 backward", Total: 5 * time.Millisecond, Count: 1}, spans[0])
	assert.Equal(t, Span{Name: "layer1 forward", Total: 2 * time.Millisecond, Count: 2}, spans[1])

	timer.Reset()
	assert.Empty(t, timer.Spans())
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	timer := NewTimer()
	ctx := WithTimer(context.Background(), timer)
	assert.Same(t, timer, FromContext(ctx))
}

func TestNilTimer(t *testing.T) {
	var timer *Timer
	assert.NotPanics(t, func() {
		timer.Time("x")()
		timer.Add("x", time.Second)
		timer.Reset()
	})
	assert.Nil(t, timer.Spans())
}

func TestReport(t *testing.T) {
	timer := NewTimer()
	timer.Add("a", 3*time.Second)
	timer.Add("b", time.Second)

	var buf bytes.Buffer
	require.NoError(t, timer.Report(&buf))
	out := buf.String()
	assert.Contains(t, out, "=== TIMING ===")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
}
