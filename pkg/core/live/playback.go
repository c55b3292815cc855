package live

import (
	"sync"
	"time"
)

// Clock reports the current time on the output audio timeline, in seconds.
type Clock interface {
	Now() float64
}

// Sink renders scheduled audio. PlayAt receives normalized mono samples and
// the absolute start time on the sink's clock; Flush abandons anything the
// sink has buffered but not yet played.
type Sink interface {
	PlayAt(samples []float32, startAt float64) error
	Flush() error
}

// wallClock measures seconds since creation.
type wallClock struct {
	start time.Time
}

// NewWallClock returns a Clock anchored at the current instant.
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Scheduler places decoded buffers back to back on the output timeline.
// A single monotonically advancing cursor is the only coordination
// primitive: each buffer starts at max(cursor, now) and the cursor advances
// by the buffer's duration. Interrupt resets the cursor to now.
type Scheduler struct {
	clock      Clock
	sink       Sink
	sampleRate int

	mu     sync.Mutex
	cursor float64
}

// NewScheduler creates a scheduler for mono audio at sampleRate Hz.
func NewScheduler(clock Clock, sink Sink, sampleRate int) *Scheduler {
	return &Scheduler{
		clock:      clock,
		sink:       sink,
		sampleRate: sampleRate,
	}
}

// Enqueue schedules one decoded buffer. Buffers play in call order with no
// gap and no overlap; a buffer arriving after the cursor has fallen behind
// the clock starts at the clock time instead, never in the past. The sink
// is invoked under the cursor lock, so buffers reach it in cursor order
// even when Enqueue is called from multiple goroutines.
func (s *Scheduler) Enqueue(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	start := s.cursor
	if now > start {
		start = now
	}
	s.cursor = start + float64(len(samples))/float64(s.sampleRate)
	return s.sink.PlayAt(samples, start)
}

// Interrupt abandons the queued continuation point: the cursor snaps to the
// current clock time and the sink drops any unplayed buffers. Idempotent.
func (s *Scheduler) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.clock.Now()
	return s.sink.Flush()
}

// Cursor returns the earliest time the next buffer may start.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
