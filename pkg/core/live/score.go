package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Evaluation is one scoring verdict for a completed user turn.
type Evaluation struct {
	// Delta is the score adjustment, expected in [-10, 10] but clamped
	// again on application regardless of what the evaluator declared.
	Delta int `json:"delta"`
	// Reason is a short human-readable justification.
	Reason string `json:"reason"`
}

// Evaluator scores one user utterance against the model's preceding turn.
type Evaluator interface {
	Evaluate(ctx context.Context, modelContext, userText string) (Evaluation, error)
}

// ScoreState holds the bounded session score and the most recent delta with
// its short display lifetime. Safe for concurrent use.
type ScoreState struct {
	displayFor time.Duration

	mu      sync.Mutex
	score   int
	delta   int
	reason  string
	shownAt time.Time
}

// NewScoreState creates a score state starting at initial, clamped to
// [0, 100].
func NewScoreState(initial int, displayFor time.Duration) *ScoreState {
	if displayFor <= 0 {
		displayFor = DefaultConfig().ScoreDisplayFor
	}
	return &ScoreState{
		displayFor: displayFor,
		score:      clampScore(initial),
	}
}

// Apply adds a delta and returns the new score. The delta is clamped to
// [-10, 10] and the resulting score to [0, 100] on every mutation.
func (s *ScoreState) Apply(delta int, reason string) (score, applied int) {
	if delta > 10 {
		delta = 10
	} else if delta < -10 {
		delta = -10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = clampScore(s.score + delta)
	s.delta = delta
	s.reason = reason
	s.shownAt = time.Now()
	return s.score, delta
}

// Score returns the current bounded score.
func (s *ScoreState) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Feedback returns the most recent delta and reason while they are still
// within their display lifetime. visible is false once the lifetime lapses.
func (s *ScoreState) Feedback() (delta int, reason string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shownAt.IsZero() || time.Since(s.shownAt) > s.displayFor {
		return 0, "", false
	}
	return s.delta, s.reason, true
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Sidecar runs evaluator calls off the audio path. Each trigger is
// fire-and-forget: a failed or malformed evaluation contributes no delta,
// and results landing after the session stopped are dropped.
type Sidecar struct {
	evaluator Evaluator
	state     *ScoreState
	active    *atomic.Bool
	timeout   time.Duration
	logger    *slog.Logger
	onUpdate  func(score, delta int, reason string)

	wg sync.WaitGroup
}

// NewSidecar creates a sidecar applying evaluations to state while active
// remains true. onUpdate may be nil.
func NewSidecar(evaluator Evaluator, state *ScoreState, active *atomic.Bool, logger *slog.Logger, onUpdate func(score, delta int, reason string)) *Sidecar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sidecar{
		evaluator: evaluator,
		state:     state,
		active:    active,
		timeout:   10 * time.Second,
		logger:    logger,
		onUpdate:  onUpdate,
	}
}

// Trigger starts one asynchronous evaluation. It never blocks the caller.
func (s *Sidecar) Trigger(ctx context.Context, modelContext, userText string) {
	if s.evaluator == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		evalCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		eval, err := s.evaluator.Evaluate(evalCtx, modelContext, userText)
		if err != nil {
			s.logger.Debug("evaluation skipped", "error", err)
			return
		}
		if s.active != nil && !s.active.Load() {
			return
		}
		score, applied := s.state.Apply(eval.Delta, eval.Reason)
		if s.onUpdate != nil {
			s.onUpdate(score, applied, eval.Reason)
		}
	}()
}

// Wait blocks until all in-flight evaluations have settled.
func (s *Sidecar) Wait() {
	s.wg.Wait()
}
