package live

import (
	"strings"
	"sync"
	"time"
)

// TranscriptTurn is one finalized span of speech attributed to a role.
type TranscriptTurn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Transcript is the append-only ordered log of finalized turns for the
// whole session. Safe for concurrent use.
type Transcript struct {
	mu    sync.Mutex
	turns []TranscriptTurn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds one finalized turn.
func (t *Transcript) Append(role Role, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, TranscriptTurn{Role: role, Text: text, At: time.Now()})
}

// Turns returns a copy of the finalized turns in order.
func (t *Transcript) Turns() []TranscriptTurn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TranscriptTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of finalized turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

// String renders the transcript as alternating labeled lines.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for i, turn := range t.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		if turn.Role == RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("AI: ")
		}
		b.WriteString(turn.Text)
	}
	return b.String()
}

// BoundaryFunc receives the finalized user text plus the last finalized
// model turn as context, the moment a user turn boundary is detected.
type BoundaryFunc func(modelContext, userText string)

// Tracker assembles per-role turns from the raw transcript event stream and
// detects user turn boundaries. The transport never announces "user turn
// complete"; the model starting to answer (its first audio chunk while
// enough user text has accumulated) is the only available evidence, so the
// boundary is a heuristic calibrated to fire at most once per user turn.
type Tracker struct {
	transcript *Transcript
	minChars   int
	onBoundary BoundaryFunc

	mu            sync.Mutex
	userBuf       strings.Builder
	modelBuf      strings.Builder
	lastModelTurn string
}

// NewTracker creates a tracker appending finalized turns to transcript.
// onBoundary may be nil when per-turn scoring is disabled.
func NewTracker(transcript *Transcript, minChars int, onBoundary BoundaryFunc) *Tracker {
	if minChars <= 0 {
		minChars = DefaultConfig().ScoreMinUserChars
	}
	return &Tracker{
		transcript: transcript,
		minChars:   minChars,
		onBoundary: onBoundary,
	}
}

// AddUserDelta appends a fragment to the open user turn.
func (t *Tracker) AddUserDelta(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userBuf.WriteString(text)
}

// AddModelDelta appends a fragment to the open model turn.
func (t *Tracker) AddModelDelta(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modelBuf.WriteString(text)
}

// ModelAudio records evidence that the model has started answering. When
// the open user turn has accumulated past the minimum length, the turn is
// finalized and handed to the boundary callback exactly once.
func (t *Tracker) ModelAudio() {
	t.mu.Lock()
	user := strings.TrimSpace(t.userBuf.String())
	if len(user) <= t.minChars {
		t.mu.Unlock()
		return
	}
	t.userBuf.Reset()
	modelCtx := t.lastModelTurn
	t.mu.Unlock()

	t.transcript.Append(RoleUser, user)
	if t.onBoundary != nil {
		t.onBoundary(modelCtx, user)
	}
}

// TurnComplete finalizes the open model turn, if any.
func (t *Tracker) TurnComplete() {
	t.mu.Lock()
	model := strings.TrimSpace(t.modelBuf.String())
	t.modelBuf.Reset()
	if model != "" {
		t.lastModelTurn = model
	}
	t.mu.Unlock()

	if model != "" {
		t.transcript.Append(RoleModel, model)
	}
}

// Interrupted discards the open model turn without finalizing it, so the
// next model turn starts clean after a barge-in.
func (t *Tracker) Interrupted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modelBuf.Reset()
}

// FlushUser finalizes any open user turn. Used at session end so trailing
// speech still reaches the transcript.
func (t *Tracker) FlushUser() {
	t.mu.Lock()
	user := strings.TrimSpace(t.userBuf.String())
	t.userBuf.Reset()
	t.mu.Unlock()

	if user != "" {
		t.transcript.Append(RoleUser, user)
	}
}
