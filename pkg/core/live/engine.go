package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/fluentloop/pkg/core/pcm"
)

// Summarizer produces the end-of-session verdict from the full transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, liveScore int, duration time.Duration) (score int, feedback string, err error)
}

// Result is what the engine hands off when a session ends.
type Result struct {
	ID         string
	Duration   time.Duration
	Score      int
	Feedback   string
	Transcript []TranscriptTurn
}

// Engine is the owning object for one live conversation: it wires capture,
// the session connection, playback scheduling, turn tracking, and the
// scoring sidecar, and fans session events out to the caller.
type Engine struct {
	id     string
	cfg    Config
	logger *slog.Logger

	conn       *Conn
	dialer     Dialer
	capture    *Capture
	scheduler  *Scheduler
	transcript *Transcript
	tracker    *Tracker
	score      *ScoreState
	evaluator  Evaluator
	sidecar    *Sidecar
	summarizer Summarizer

	resampMu   sync.Mutex
	resamplers map[int]*pcm.Resampler

	events    chan Event
	emitMu    sync.Mutex
	emitDone  bool
	active    atomic.Bool
	startedAt time.Time
	stopOnce  sync.Once
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger for the engine and its subsystems.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithEvaluator installs the per-turn scoring collaborator.
func WithEvaluator(ev Evaluator) EngineOption {
	return func(e *Engine) { e.evaluator = ev }
}

// WithSummarizer installs the end-of-session collaborator.
func WithSummarizer(s Summarizer) EngineOption {
	return func(e *Engine) { e.summarizer = s }
}

// WithEngineDialer replaces the connection's transport dialer.
func WithEngineDialer(d Dialer) EngineOption {
	return func(e *Engine) { e.dialer = d }
}

// NewEngine assembles a session engine around a capture source and a
// playback sink. The engine starts idle; call Start to go live.
func NewEngine(apiKey string, cfg Config, source Source, clock Clock, sink Sink, opts ...EngineOption) *Engine {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = NewWallClock()
	}

	e := &Engine{
		id:         uuid.NewString(),
		cfg:        cfg,
		logger:     slog.Default(),
		transcript: NewTranscript(),
		score:      NewScoreState(50, cfg.ScoreDisplayFor),
		resamplers: make(map[int]*pcm.Resampler),
		events:     make(chan Event, 256),
	}
	e.scheduler = NewScheduler(clock, sink, cfg.OutputSampleRate)
	for _, opt := range opts {
		opt(e)
	}

	connOpts := []ConnOption{WithConnLogger(e.logger)}
	if e.dialer != nil {
		connOpts = append(connOpts, WithDialer(e.dialer))
	}
	e.conn = NewConn(apiKey, cfg, connOpts...)

	if e.evaluator != nil {
		e.sidecar = NewSidecar(e.evaluator, e.score, &e.active, e.logger, func(score, delta int, reason string) {
			e.emit(&ScoreUpdatedEvent{Score: score, Delta: delta, Reason: reason})
		})
	}
	e.tracker = NewTracker(e.transcript, cfg.ScoreMinUserChars, e.onUserTurn)
	e.capture = NewCapture(source, cfg, e.onCaptureFrame, WithCaptureLogger(e.logger))
	return e
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// Events yields engine events. The channel closes after Stop once the
// connection's read loop has drained.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Start acquires the capture source and connects the remote session.
// Capture begins first so early frames queue on the connection and flush
// the instant it reaches Connected.
func (e *Engine) Start(ctx context.Context) error {
	e.active.Store(true)
	e.startedAt = time.Now()

	if err := e.capture.Start(ctx); err != nil {
		e.active.Store(false)
		return err
	}
	if err := e.conn.Connect(ctx); err != nil {
		e.capture.Stop()
		e.active.Store(false)
		return err
	}

	go e.runLoop(ctx)
	return nil
}

func (e *Engine) runLoop(ctx context.Context) {
	defer e.closeEvents()

	for ev := range e.conn.Events() {
		switch ev := ev.(type) {
		case *TranscriptDeltaEvent:
			if ev.Role == RoleUser {
				e.tracker.AddUserDelta(ev.Text)
			} else {
				e.tracker.AddModelDelta(ev.Text)
			}
			e.emit(ev)
		case *AudioChunkEvent:
			e.tracker.ModelAudio()
			if err := e.playChunk(ev); err != nil {
				e.logger.Warn("playback failed", "error", err)
			}
			e.emit(ev)
		case *TurnCompleteEvent:
			e.tracker.TurnComplete()
			e.emit(ev)
		case *InterruptedEvent:
			e.tracker.Interrupted()
			if err := e.scheduler.Interrupt(); err != nil {
				e.logger.Warn("interrupt flush failed", "error", err)
			}
			e.emit(ev)
		case *ErrorEvent:
			e.capture.Stop()
			e.active.Store(false)
			e.emit(ev)
		default:
			e.emit(ev)
		}
	}
}

// onCaptureFrame encodes one capture block and ships it to the connection.
// Runs on the capture goroutine; it must stay cheap.
func (e *Engine) onCaptureFrame(frame []float32, seq int64) {
	if err := e.conn.Send(pcm.Encode(frame)); err != nil {
		e.logger.Warn("frame dropped", "seq", seq, "error", err)
	}
	e.emit(&AmplitudeEvent{Level: e.capture.Amplitude()})
}

// onUserTurn is the tracker's boundary callback.
func (e *Engine) onUserTurn(modelContext, userText string) {
	e.emit(&TurnFinalizedEvent{Role: RoleUser, Text: userText})
	if e.cfg.ScorePolicy != ScorePerTurn || e.sidecar == nil {
		return
	}
	e.sidecar.Trigger(context.Background(), modelContext, userText)
}

// playChunk decodes one inbound payload, converts it to the output rate if
// the declared rate differs, and schedules it.
func (e *Engine) playChunk(ev *AudioChunkEvent) error {
	samples := pcm.Decode(ev.Data)
	if ev.SampleRate != e.cfg.OutputSampleRate {
		r, err := e.resamplerFor(ev.SampleRate)
		if err != nil {
			return err
		}
		samples, err = r.Process(samples)
		if err != nil {
			return err
		}
	}
	return e.scheduler.Enqueue(samples)
}

func (e *Engine) resamplerFor(rate int) (*pcm.Resampler, error) {
	e.resampMu.Lock()
	defer e.resampMu.Unlock()
	if r, ok := e.resamplers[rate]; ok {
		return r, nil
	}
	r, err := pcm.NewResampler(rate, e.cfg.OutputSampleRate)
	if err != nil {
		return nil, err
	}
	e.resamplers[rate] = r
	return r, nil
}

// SetMuted gates outbound frames. The connection stays up and the
// amplitude visualization keeps updating.
func (e *Engine) SetMuted(muted bool) {
	e.capture.SetMuted(muted)
}

// Muted reports the capture gate.
func (e *Engine) Muted() bool {
	return e.capture.Muted()
}

// Amplitude returns the smoothed input level.
func (e *Engine) Amplitude() float64 {
	return e.capture.Amplitude()
}

// Score returns the live session score.
func (e *Engine) Score() int {
	return e.score.Score()
}

// Feedback returns the most recent score delta while visible.
func (e *Engine) Feedback() (delta int, reason string, visible bool) {
	return e.score.Feedback()
}

// State returns the connection state.
func (e *Engine) State() ConnectionState {
	return e.conn.State()
}

// Transcript returns the finalized turns so far.
func (e *Engine) Transcript() []TranscriptTurn {
	return e.transcript.Turns()
}

// Stop tears the session down: capture released, transport closed.
// Idempotent and safe from any state. In-flight evaluations are not
// cancelled; their late results are dropped by the active flag.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.active.Store(false)
		e.capture.Stop()
		_ = e.conn.Close()
	})
}

// End stops the session and hands the transcript to the summarizer. A
// summarizer failure falls back to the live score with no feedback rather
// than failing the session.
func (e *Engine) End(ctx context.Context) Result {
	e.Stop()
	e.tracker.FlushUser()
	e.tracker.TurnComplete()

	res := Result{
		ID:         e.id,
		Duration:   time.Since(e.startedAt),
		Score:      e.score.Score(),
		Transcript: e.transcript.Turns(),
	}
	if e.summarizer != nil && e.cfg.ScorePolicy != ScoreOff {
		score, feedback, err := e.summarizer.Summarize(ctx, e.transcript.String(), res.Score, res.Duration)
		if err != nil {
			e.logger.Warn("summary failed, keeping live score", "error", err)
		} else {
			res.Score = clampScore(score)
			res.Feedback = feedback
		}
	}
	return res
}

func (e *Engine) emit(event Event) {
	if event == nil {
		return
	}
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	if e.emitDone {
		return
	}
	select {
	case e.events <- event:
	default:
	}
}

func (e *Engine) closeEvents() {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	if e.emitDone {
		return
	}
	e.emitDone = true
	close(e.events)
}
