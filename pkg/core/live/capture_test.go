package live

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/fluentloop/fluentloop/pkg/core"
)

// sliceSource replays a fixed sample buffer and then reports EOF.
type sliceSource struct {
	mu      sync.Mutex
	samples []float32
	pos     int
	closed  bool
}

func (s *sliceSource) Read(dst []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *sliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type frameRecorder struct {
	mu     sync.Mutex
	frames [][]float32
	seqs   []int64
}

func (r *frameRecorder) record(frame []float32, seq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	r.seqs = append(r.seqs, seq)
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func toneSamples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.5
		} else {
			out[i] = -0.5
		}
	}
	return out
}

func captureConfig() Config {
	cfg := DefaultConfig()
	cfg.BlockSize = 1024
	return cfg
}

func TestCapture_EmitsFixedBlocks(t *testing.T) {
	src := &sliceSource{samples: toneSamples(3 * 1024)}
	rec := &frameRecorder{}
	c := NewCapture(src, captureConfig(), rec.record)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return rec.count() == 3 })
	c.Stop()

	if rec.count() != 3 {
		t.Fatalf("emitted %d frames, want 3", rec.count())
	}
	for i, frame := range rec.frames {
		if len(frame) != 1024 {
			t.Errorf("frame %d has %d samples, want 1024", i, len(frame))
		}
		if rec.seqs[i] != int64(i) {
			t.Errorf("frame %d seq = %d, want %d", i, rec.seqs[i], i)
		}
	}
}

func TestCapture_MutedKeepsAmplitude(t *testing.T) {
	src := &sliceSource{samples: toneSamples(4 * 1024)}
	rec := &frameRecorder{}
	c := NewCapture(src, captureConfig(), rec.record)
	c.SetMuted(true)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return c.Amplitude() > 0 })
	c.Stop()

	if rec.count() != 0 {
		t.Errorf("muted capture emitted %d frames, want 0", rec.count())
	}
	if c.Amplitude() <= 0 {
		t.Error("amplitude should keep updating while muted")
	}
}

func TestCapture_AmplitudeBounded(t *testing.T) {
	src := &sliceSource{samples: toneSamples(8 * 1024)}
	c := NewCapture(src, captureConfig(), nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return c.Amplitude() > 0 })
	c.Stop()

	if amp := c.Amplitude(); amp < 0 || amp > 100 {
		t.Errorf("amplitude = %f, want within [0, 100]", amp)
	}
}

func TestCapture_StopIdempotent(t *testing.T) {
	src := &sliceSource{samples: toneSamples(1024)}
	c := NewCapture(src, captureConfig(), nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Stop()
	c.Stop()
}

func TestCapture_StopBeforeStart(t *testing.T) {
	src := &sliceSource{samples: toneSamples(1024)}
	rec := &frameRecorder{}
	c := NewCapture(src, captureConfig(), rec.record)

	c.Stop()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() after Stop error = %v", err)
	}
	c.Stop()
	if rec.count() != 0 {
		t.Errorf("emitted %d frames after pre-start stop, want 0", rec.count())
	}
}

func TestCapture_NilSource(t *testing.T) {
	c := NewCapture(nil, captureConfig(), nil)
	err := c.Start(context.Background())
	if !core.IsType(err, core.ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want device unavailable", err)
	}
}

type failingSource struct{}

func (failingSource) Read(dst []float32) (int, error) {
	return 0, errors.New("device wedged")
}

func (failingSource) Close() error { return nil }

func TestCapture_SourceFailureRecorded(t *testing.T) {
	c := NewCapture(failingSource{}, captureConfig(), nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return c.Err() != nil })
	if !core.IsType(c.Err(), core.ErrDeviceUnavailable) {
		t.Errorf("Err() = %v, want device unavailable", c.Err())
	}
	c.Stop()
}
