package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluentloop/fluentloop/pkg/core"
)

// fakeWire scripts the server side of a session: inbound frames are pushed
// through a channel and every outbound write is recorded.
type fakeWire struct {
	mu      sync.Mutex
	writes  [][]byte
	inbound chan []byte
	closed  bool
	readErr error // returned instead of a clean close when inbound drains
}

func newFakeWire() *fakeWire {
	w := &fakeWire{inbound: make(chan []byte, 64)}
	w.inbound <- []byte(`{"setupComplete":{}}`)
	return w
}

func (w *fakeWire) push(frame string) {
	w.inbound <- []byte(frame)
}

func (w *fakeWire) WriteJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, raw)
	return nil
}

func (w *fakeWire) ReadMessage() (int, []byte, error) {
	data, ok := <-w.inbound
	if !ok {
		w.mu.Lock()
		readErr := w.readErr
		w.mu.Unlock()
		if readErr != nil {
			return 0, nil, readErr
		}
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, data, nil
}

func (w *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (w *fakeWire) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.inbound)
	}
	return nil
}

func (w *fakeWire) written() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]byte, len(w.writes))
	copy(out, w.writes)
	return out
}

// mediaPayloads decodes the PCM payloads of all realtimeInput writes,
// skipping the setup frame.
func mediaPayloads(t *testing.T, writes [][]byte) [][]byte {
	t.Helper()
	var out [][]byte
	for _, raw := range writes {
		var frame realtimeInputMessage
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unmarshal write: %v", err)
		}
		if frame.RealtimeInput == nil || frame.RealtimeInput.Media == nil {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(frame.RealtimeInput.Media.Data)
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		out = append(out, pcm)
	}
	return out
}

func newTestConn(wire *fakeWire, mut func(*Config)) *Conn {
	cfg := DefaultConfig()
	if mut != nil {
		mut(&cfg)
	}
	return NewConn("test-key", cfg, WithDialer(func(ctx context.Context, url string) (wireConn, error) {
		return wire, nil
	}))
}

func TestConn_PreConnectQueueFlushedInOrder(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, nil)
	defer conn.Close()

	frames := [][]byte{{1, 1}, {2, 2}, {3, 3}}
	for _, f := range frames {
		if err := conn.Send(f); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if got := len(wire.written()); got != 0 {
		t.Fatalf("wrote %d frames before connect, want 0", got)
	}

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.State() != StateConnected {
		t.Fatalf("state = %v, want CONNECTED", conn.State())
	}

	payloads := mediaPayloads(t, wire.written())
	if len(payloads) != 3 {
		t.Fatalf("flushed %d frames, want 3", len(payloads))
	}
	for i, want := range frames {
		if string(payloads[i]) != string(want) {
			t.Errorf("frame %d = %v, want %v", i, payloads[i], want)
		}
	}
}

func TestConn_CaptureFramesObservedInOrder(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, nil)
	defer conn.Close()

	// Frames sent around the connect transition arrive exactly once, in order.
	_ = conn.Send([]byte{1})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_ = conn.Send([]byte{2})
	_ = conn.Send([]byte{3})

	payloads := mediaPayloads(t, wire.written())
	if len(payloads) != 3 {
		t.Fatalf("observed %d frames, want 3", len(payloads))
	}
	for i := range payloads {
		if payloads[i][0] != byte(i+1) {
			t.Errorf("frame %d = %v, want [%d]", i, payloads[i], i+1)
		}
	}
}

func TestConn_QueueBounded(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, func(c *Config) { c.SendQueueDepth = 2 })
	defer conn.Close()

	if err := conn.Send([]byte{1}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := conn.Send([]byte{2}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	err := conn.Send([]byte{3})
	if !core.IsType(err, core.ErrExhausted) {
		t.Fatalf("Send() error = %v, want exhausted", err)
	}
}

func TestConn_EventsDispatched(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, nil)
	defer conn.Close()

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	audio := base64.StdEncoding.EncodeToString([]byte{9, 9})
	wire.push(`{"serverContent":{"inputTranscription":{"text":"hey"}}}`)
	wire.push(`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"data":"` + audio + `"}}]}}}`)
	wire.push(`{"serverContent":{"turnComplete":true}}`)

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				t.Fatalf("events closed early, got %v", got)
			}
			if _, isState := ev.(*StateChangedEvent); isState {
				continue
			}
			got = append(got, ev.EventType())
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	want := []string{"transcript.delta", "audio.chunk", "turn.complete"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestConn_CloseIdempotent(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, nil)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if conn.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED", conn.State())
	}
}

func TestConn_CloseBeforeConnect(t *testing.T) {
	conn := newTestConn(newFakeWire(), nil)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Sends after close are silently discarded.
	if err := conn.Send([]byte{1}); err != nil {
		t.Errorf("Send() after close = %v, want nil", err)
	}
}

func TestConn_CloseDuringConnect(t *testing.T) {
	wire := newFakeWire()
	closeFinished := make(chan struct{})
	cfg := DefaultConfig()
	conn := NewConn("test-key", cfg, WithDialer(func(ctx context.Context, url string) (wireConn, error) {
		// Hold the dial until Close has fully run, so the connect attempt
		// lands on an already-closed connection.
		<-closeFinished
		return wire, nil
	}))

	connectErr := make(chan error, 1)
	go func() { connectErr <- conn.Connect(context.Background()) }()

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	close(closeFinished)

	select {
	case err := <-connectErr:
		if !core.IsType(err, core.ErrConnectionFailed) {
			t.Fatalf("Connect() error = %v, want connection failed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect() did not return")
	}

	// The late connect must not revive the session: the wire is released
	// and the events channel still closes exactly once.
	waitFor(t, func() bool {
		wire.mu.Lock()
		defer wire.mu.Unlock()
		return wire.closed
	})
	for range conn.Events() {
	}
	if conn.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED", conn.State())
	}
	// A second Close must still return promptly.
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestConn_DialFailureIsTerminal(t *testing.T) {
	cfg := DefaultConfig()
	conn := NewConn("test-key", cfg, WithDialer(func(ctx context.Context, url string) (wireConn, error) {
		return nil, context.DeadlineExceeded
	}))

	err := conn.Connect(context.Background())
	if !core.IsType(err, core.ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want connection failed", err)
	}
	if conn.State() != StateError {
		t.Errorf("state = %v, want ERROR", conn.State())
	}
	// Terminal state: sends become no-ops rather than queueing forever.
	if err := conn.Send([]byte{1}); err != nil {
		t.Errorf("Send() in error state = %v, want nil", err)
	}
}

func TestConn_TransportErrorSurfacesErrorState(t *testing.T) {
	wire := newFakeWire()
	conn := newTestConn(wire, nil)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// An abnormal close is a transport failure, not a clean shutdown.
	wire.mu.Lock()
	wire.closed = true
	wire.readErr = &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
	wire.mu.Unlock()
	close(wire.inbound)

	waitFor(t, func() bool { return conn.State() == StateError })
	if !core.IsType(conn.Err(), core.ErrConnectionFailed) {
		t.Errorf("Err() = %v, want connection failed", conn.Err())
	}
	// Sends in the error state are discarded, not queued.
	if err := conn.Send([]byte{1}); err != nil {
		t.Errorf("Send() in error state = %v, want nil", err)
	}
}
