package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluentloop/fluentloop/pkg/core"
)

const defaultConnectTimeout = 15 * time.Second

// wireConn is the transport surface Conn needs from a websocket.
// *websocket.Conn satisfies it.
type wireConn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer establishes the underlying transport. The default dials the remote
// bidi endpoint with gorilla/websocket.
type Dialer func(ctx context.Context, url string) (wireConn, error)

func defaultDialer(ctx context.Context, url string) (wireConn, error) {
	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Conn owns the lifecycle of one remote streaming session: dial, setup
// handshake, frame dispatch, close. Outbound frames sent before the setup
// ack are queued in arrival order and flushed exactly once on the transition
// to Connected.
type Conn struct {
	cfg    Config
	apiKey string
	dial   Dialer
	logger *slog.Logger

	mu    sync.Mutex
	state ConnectionState
	queue []realtimeInputMessage

	wire      wireConn
	writeMu   sync.Mutex
	events    chan Event
	emitMu    sync.Mutex
	emitDone  bool
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	started   atomic.Bool

	errMu sync.Mutex
	err   error
}

// ConnOption customizes a Conn.
type ConnOption func(*Conn)

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) ConnOption {
	return func(c *Conn) { c.dial = d }
}

// WithConnLogger sets the structured logger.
func WithConnLogger(l *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// NewConn creates a connection in the Disconnected state. Frames may be
// queued with Send before Connect is called.
func NewConn(apiKey string, cfg Config, opts ...ConnOption) *Conn {
	c := &Conn{
		cfg:    cfg.withDefaults(),
		apiKey: apiKey,
		dial:   defaultDialer,
		logger: slog.Default(),
		state:  StateDisconnected,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events yields connection events. The channel closes when the read loop
// exits or the connection is closed before ever connecting.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the remote endpoint, performs the setup handshake, flushes
// any queued frames in order, and starts the read loop. It returns once the
// connection is Connected or has failed terminally.
func (c *Conn) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	wire, err := c.dial(dialCtx, liveEndpoint(c.apiKey))
	if err != nil {
		return c.fail(core.NewConnectionFailedError("dial live endpoint", err))
	}
	if c.closed.Load() {
		_ = wire.Close()
		return core.NewConnectionFailedError("connection closed during connect", nil)
	}

	if err := wire.WriteJSON(buildSetup(c.cfg)); err != nil {
		_ = wire.Close()
		return c.fail(core.NewConnectionFailedError("send setup", err))
	}

	_, payload, err := wire.ReadMessage()
	if err != nil {
		_ = wire.Close()
		return c.fail(core.NewConnectionFailedError("read setup ack", err))
	}
	var ack serverMessage
	if err := json.Unmarshal(payload, &ack); err != nil || ack.SetupComplete == nil {
		_ = wire.Close()
		return c.fail(core.NewConnectionFailedError("setup not acknowledged", err))
	}

	// Flush the pre-connect queue before any new Send observes Connected,
	// so queued frames keep their arrival order. Close serializes on the
	// same mutex, so the closed re-check and the started flag settle who
	// owns the done channel: a connection never observed as started here
	// is finished by Close, not by a read loop.
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = wire.Close()
		return core.NewConnectionFailedError("connection closed during connect", nil)
	}
	c.wire = wire
	queued := c.queue
	c.queue = nil
	for _, frame := range queued {
		if err := c.writeJSON(frame); err != nil {
			c.mu.Unlock()
			_ = wire.Close()
			return c.fail(core.NewConnectionFailedError("flush queued frame", err))
		}
	}
	from := c.state
	c.state = StateConnected
	c.started.Store(true)
	c.mu.Unlock()
	c.emit(&StateChangedEvent{From: from, To: StateConnected})

	go c.readLoop()
	return nil
}

// Send submits one capture frame of raw PCM. Before Connected the frame is
// queued, bounded by SendQueueDepth. After a terminal Error or Close the
// frame is silently discarded.
func (c *Conn) Send(pcm []byte) error {
	if c.closed.Load() {
		return nil
	}

	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		frame := buildMediaFrame(pcm, c.cfg.InputSampleRate)
		if err := c.writeJSON(frame); err != nil {
			c.logger.Warn("send frame failed", "error", err)
			return core.NewConnectionFailedError("send frame", err)
		}
		return nil
	case StateDisconnected, StateConnecting:
		defer c.mu.Unlock()
		if len(c.queue) >= c.cfg.SendQueueDepth {
			return core.NewExhaustedError("pre-connect send queue full")
		}
		c.queue = append(c.queue, buildMediaFrame(pcm, c.cfg.InputSampleRate))
		return nil
	default: // StateError
		c.mu.Unlock()
		return nil
	}
}

// Close shuts the transport down. Idempotent and safe from any state.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		wire := c.wire
		from := c.state
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		if from != StateError && from != StateDisconnected {
			c.emit(&StateChangedEvent{From: from, To: StateDisconnected})
		}

		if wire != nil {
			c.writeMu.Lock()
			_ = wire.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			c.writeMu.Unlock()
			_ = wire.Close()
		}
		if !c.started.Load() {
			c.emit(&ClosedEvent{Reason: "closed before connect"})
			c.closeEvents()
			c.closeDone()
		}
	})
	<-c.done
	return nil
}

// Err returns the terminal connection error, if any, once the session ends.
func (c *Conn) Err() error {
	<-c.done
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) readLoop() {
	defer c.closeDone()
	defer c.closeEvents()

	for {
		_, data, err := c.conn().ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setState(StateDisconnected)
				c.emit(&ClosedEvent{Reason: "transport closed"})
				return
			}
			terr := core.NewConnectionFailedError("read frame", err)
			c.setErr(terr)
			c.setState(StateError)
			c.emit(&ErrorEvent{Err: terr})
			return
		}

		events, err := decodeServerFrame(data, c.cfg.OutputSampleRate)
		if err != nil {
			c.logger.Warn("skipping undecodable frame", "error", err)
			continue
		}
		for _, ev := range events {
			c.emit(ev)
		}
	}
}

func (c *Conn) conn() wireConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wire
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.wire.WriteJSON(v)
}

func (c *Conn) setState(to ConnectionState) {
	c.mu.Lock()
	from := c.state
	if from == to || (from == StateError && to != StateError) {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()
	c.emit(&StateChangedEvent{From: from, To: to})
}

func (c *Conn) fail(err *core.Error) error {
	c.setErr(err)
	c.setState(StateError)
	c.emit(&ErrorEvent{Err: err})
	return err
}

func (c *Conn) setErr(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Conn) emit(event Event) {
	if event == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.emitDone {
		return
	}
	select {
	case c.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stops draining.
	}
}

func (c *Conn) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Conn) closeEvents() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.emitDone {
		return
	}
	c.emitDone = true
	close(c.events)
}
