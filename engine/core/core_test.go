package core

import (
	"bytes"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func TestClock(t *testing.T) {
	now := time.Duration(0)
	c := &Clock{now: func() time.Duration { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("unstarted clock reported %v", c.Elapsed())
	}

	now = 2 * time.Second
	c.Start()
	now += 1500 * time.Millisecond
	c.Update()
	if got := c.Elapsed(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Elapsed() = %v, want 1.5", got)
	}

	c.Stop()
	now += time.Second
	c.Update()
	if got := c.Elapsed(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("stopped clock moved to %v", got)
	}
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name      string
		frames    []float64
		wantAvgMS float64
		wantFPS   float64
	}{
		{"single frame", []float64{0.016}, 16, 0},
		{"sixty four frames per second", repeat(1.0/64.0, 64), 15.625, 64},
		{"window keeps last thirty", append(repeat(1.0, 5), repeat(1.0/128.0, AVG_COUNT)...), 7.8125, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			for _, f := range tt.frames {
				m.Update(f)
			}
			if math.Abs(m.FrameTime()-tt.wantAvgMS) > 1e-6 {
				t.Errorf("FrameTime() = %v, want %v", m.FrameTime(), tt.wantAvgMS)
			}
			if m.FPS() != tt.wantFPS {
				t.Errorf("FPS() = %v, want %v", m.FPS(), tt.wantFPS)
			}
		})
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first := "first"
	second := "second"
	handler := func(name string, handled bool) FnOnEvent {
		return func(code SystemEventCode, sender interface{}, data EventContext) bool {
			calls = append(calls, name)
			return handled
		}
	}

	if !bus.Register(EVENT_CODE_RESIZED, first, handler(first, false)) {
		t.Fatal("first registration failed")
	}
	if bus.Register(EVENT_CODE_RESIZED, first, handler(first, false)) {
		t.Error("duplicate registration succeeded")
	}
	if !bus.Register(EVENT_CODE_RESIZED, second, handler(second, true)) {
		t.Fatal("second registration failed")
	}
	if bus.Register(0, first, handler(first, false)) {
		t.Error("registration for code 0 succeeded")
	}

	if !bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{Width: 800, Height: 600}) {
		t.Error("event not reported as handled")
	}
	if len(calls) != 2 || calls[0] != first || calls[1] != second {
		t.Errorf("calls = %v", calls)
	}

	if !bus.Unregister(EVENT_CODE_RESIZED, second) {
		t.Error("unregister failed")
	}
	if bus.Unregister(EVENT_CODE_RESIZED, second) {
		t.Error("second unregister succeeded")
	}
	if bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}) {
		t.Error("unhandled event reported as handled")
	}
	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("event without listeners reported as handled")
	}
}

func TestLogErrorKeepsVerbs(t *testing.T) {
	var buf bytes.Buffer
	getLogger().SetOutput(&buf)
	defer getLogger().SetOutput(os.Stderr)

	err := errors.New("shader 100%d.spv: bad magic %s")
	LogError("%s", err)

	if got := buf.String(); !strings.Contains(got, "shader 100%d.spv: bad magic %s") {
		t.Errorf("logged %q, want the error text unchanged", got)
	}
}
