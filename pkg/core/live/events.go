package live

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// Role identifies which side of the conversation produced text or audio.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// StateChangedEvent is emitted when the connection state changes.
type StateChangedEvent struct {
	From ConnectionState `json:"from"`
	To   ConnectionState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// TranscriptDeltaEvent carries a streaming transcript fragment for one role.
type TranscriptDeltaEvent struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (e *TranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// AudioChunkEvent carries one decoded synthesized audio payload.
type AudioChunkEvent struct {
	Data       []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
}

func (e *AudioChunkEvent) EventType() string { return "audio.chunk" }

// TurnCompleteEvent signals the model finished its current response.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }

// InterruptedEvent signals the model's speech was cut off by the user.
type InterruptedEvent struct{}

func (e *InterruptedEvent) EventType() string { return "turn.interrupted" }

// TurnFinalizedEvent is emitted when a turn is appended to the transcript.
type TurnFinalizedEvent struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (e *TurnFinalizedEvent) EventType() string { return "turn.finalized" }

// ScoreUpdatedEvent is emitted after the sidecar applies an evaluation.
type ScoreUpdatedEvent struct {
	Score  int    `json:"score"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

func (e *ScoreUpdatedEvent) EventType() string { return "score.updated" }

// AmplitudeEvent carries the smoothed input level for visualization.
type AmplitudeEvent struct {
	Level float64 `json:"level"`
}

func (e *AmplitudeEvent) EventType() string { return "amplitude" }

// ErrorEvent surfaces a terminal session error.
type ErrorEvent struct {
	Err error `json:"-"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// ClosedEvent is emitted when the session ends.
type ClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *ClosedEvent) EventType() string { return "session.closed" }
