package live

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fluentloop/fluentloop/pkg/core"
	"github.com/fluentloop/fluentloop/pkg/core/pcm"
)

// Source is a microphone-like stream of normalized mono samples at the
// session's input rate. Read fills dst and returns the sample count; io.EOF
// ends capture cleanly.
type Source interface {
	Read(dst []float32) (int, error)
	Close() error
}

// FrameFunc receives each full capture block along with its sequence number.
type FrameFunc func(frame []float32, seq int64)

// Capture pulls fixed-size blocks from a Source, keeps a smoothed amplitude
// estimate for visualization, and hands unmuted frames to a FrameFunc.
// Muting gates the frame handoff only; blocks keep flowing and the
// amplitude keeps updating.
type Capture struct {
	source    Source
	onFrame   FrameFunc
	blockSize int
	smoothing float64
	logger    *slog.Logger

	muted   atomic.Bool
	stopped atomic.Bool

	ampMu sync.Mutex
	amp   float64

	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool

	errMu sync.Mutex
	err   error
}

// CaptureOption customizes a Capture.
type CaptureOption func(*Capture)

// WithCaptureLogger sets the structured logger.
func WithCaptureLogger(l *slog.Logger) CaptureOption {
	return func(c *Capture) { c.logger = l }
}

// NewCapture creates a capture graph over source. cfg supplies the block
// size and amplitude smoothing factor.
func NewCapture(source Source, cfg Config, onFrame FrameFunc, opts ...CaptureOption) *Capture {
	cfg = cfg.withDefaults()
	c := &Capture{
		source:    source,
		onFrame:   onFrame,
		blockSize: cfg.BlockSize,
		smoothing: cfg.AmplitudeSmoothing,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins pulling blocks from the source. The first read failure is
// treated as a missing or refused device so callers can distinguish setup
// failures from a mid-session teardown.
func (c *Capture) Start(ctx context.Context) error {
	if c.source == nil {
		return core.NewDeviceUnavailableError("no capture source", nil)
	}
	if !c.started.CompareAndSwap(false, true) {
		return core.NewInvalidRequestError("capture already started")
	}
	if c.stopped.Load() {
		// Stop was called before Start; release the device and do nothing.
		close(c.done)
		return nil
	}
	go c.run(ctx)
	return nil
}

func (c *Capture) run(ctx context.Context) {
	defer close(c.done)

	frame := make([]float32, c.blockSize)
	var seq int64
	for {
		if c.stopped.Load() || ctx.Err() != nil {
			return
		}

		n, err := readFull(c.source, frame)
		if n > 0 {
			c.updateAmplitude(frame[:n])
			if !c.muted.Load() && c.onFrame != nil {
				block := make([]float32, n)
				copy(block, frame[:n])
				c.onFrame(block, seq)
			}
			seq++
		}
		if err != nil {
			if err != io.EOF && !c.stopped.Load() {
				c.setErr(core.NewDeviceUnavailableError("capture source failed", err))
				c.logger.Warn("capture source failed", "error", err)
			}
			return
		}
	}
}

// readFull fills dst from the source across short reads.
func readFull(src Source, dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := src.Read(dst[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.EOF
		}
	}
	return total, nil
}

func (c *Capture) updateAmplitude(frame []float32) {
	level := pcm.RMSEnergyFloat(frame) * 100 * 5
	if level > 100 {
		level = 100
	}

	c.ampMu.Lock()
	c.amp = c.amp*(1-c.smoothing) + level*c.smoothing
	c.ampMu.Unlock()
}

// Amplitude returns the smoothed input level in [0, 100]. Visualization
// only; it has no effect on the pipeline.
func (c *Capture) Amplitude() float64 {
	c.ampMu.Lock()
	defer c.ampMu.Unlock()
	return c.amp
}

// SetMuted gates the frame handoff without touching the device.
func (c *Capture) SetMuted(muted bool) {
	c.muted.Store(muted)
}

// Muted reports the current gate.
func (c *Capture) Muted() bool {
	return c.muted.Load()
}

// Stop releases the source. Idempotent and safe before Start completes.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		if c.source != nil {
			_ = c.source.Close()
		}
	})
	if c.started.Load() {
		<-c.done
	}
}

// Err returns the terminal capture error, if any.
func (c *Capture) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Capture) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
