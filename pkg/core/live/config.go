package live

import "time"

// ConnectionState represents the lifecycle of the remote streaming session.
type ConnectionState int

const (
	// StateDisconnected is the initial state and the state after a clean close.
	StateDisconnected ConnectionState = iota
	// StateConnecting is the window between dial and the server setup ack.
	StateConnecting
	// StateConnected means the transport is open and frames flow both ways.
	StateConnected
	// StateError is terminal; the session does not reconnect.
	StateError
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ScorePolicy selects when the scoring sidecar runs.
type ScorePolicy int

const (
	// ScorePerTurn evaluates every detected user turn during the session.
	ScorePerTurn ScorePolicy = iota
	// ScoreSessionEnd skips per-turn evaluation; only the end-of-session
	// summary produces a score.
	ScoreSessionEnd
	// ScoreOff disables scoring entirely.
	ScoreOff
)

// Config holds all configuration for one live session.
type Config struct {
	// Model is the speech-to-speech model identifier.
	Model string `json:"model"`

	// Voice selects the prebuilt synthesis voice.
	Voice string `json:"voice,omitempty"`

	// SystemInstruction steers the conversation.
	SystemInstruction string `json:"system_instruction,omitempty"`

	// InputTranscription requests a transcript stream of the user's audio.
	InputTranscription bool `json:"input_transcription"`

	// OutputTranscription requests a transcript stream of the model's audio.
	OutputTranscription bool `json:"output_transcription"`

	// InputSampleRate is the capture rate in Hz. Default: 16000.
	InputSampleRate int `json:"input_sample_rate"`

	// OutputSampleRate is the playback rate in Hz. Default: 24000.
	OutputSampleRate int `json:"output_sample_rate"`

	// BlockSize is the capture frame size in samples. Valid range is
	// 1024 to 4096. Default: 2048.
	BlockSize int `json:"block_size"`

	// AmplitudeSmoothing is the EMA factor for the visualization level.
	// Default: 0.2.
	AmplitudeSmoothing float64 `json:"amplitude_smoothing"`

	// ScoreMinUserChars is the minimum accumulated user text length before
	// a model audio chunk is taken as a turn boundary. Default: 6.
	ScoreMinUserChars int `json:"score_min_user_chars"`

	// ScoreDisplayFor is how long a score delta stays visible. Default: 2s.
	ScoreDisplayFor time.Duration `json:"score_display_for"`

	// SendQueueDepth bounds the pre-connect outbound frame queue.
	// Default: 64.
	SendQueueDepth int `json:"send_queue_depth"`

	// ScorePolicy selects per-turn, end-of-session, or no scoring.
	ScorePolicy ScorePolicy `json:"score_policy"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:               "gemini-2.5-flash-native-audio-preview-09-2025",
		Voice:               "Puck",
		InputTranscription:  true,
		OutputTranscription: true,
		InputSampleRate:     16000,
		OutputSampleRate:    24000,
		BlockSize:           2048,
		AmplitudeSmoothing:  0.2,
		ScoreMinUserChars:   6,
		ScoreDisplayFor:     2 * time.Second,
		SendQueueDepth:      64,
		ScorePolicy:         ScorePerTurn,
	}
}

// withDefaults fills zero-valued fields so partially built configs behave.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.InputSampleRate == 0 {
		c.InputSampleRate = d.InputSampleRate
	}
	if c.OutputSampleRate == 0 {
		c.OutputSampleRate = d.OutputSampleRate
	}
	if c.BlockSize == 0 {
		c.BlockSize = d.BlockSize
	}
	if c.BlockSize < 1024 {
		c.BlockSize = 1024
	} else if c.BlockSize > 4096 {
		c.BlockSize = 4096
	}
	if c.AmplitudeSmoothing <= 0 || c.AmplitudeSmoothing > 1 {
		c.AmplitudeSmoothing = d.AmplitudeSmoothing
	}
	if c.ScoreMinUserChars == 0 {
		c.ScoreMinUserChars = d.ScoreMinUserChars
	}
	if c.ScoreDisplayFor == 0 {
		c.ScoreDisplayFor = d.ScoreDisplayFor
	}
	if c.SendQueueDepth == 0 {
		c.SendQueueDepth = d.SendQueueDepth
	}
	return c
}

// AudioConfig describes a raw PCM stream.
type AudioConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	BitDepth   int `json:"bit_depth"`
}

// BytesPerSecond returns the byte rate of the stream.
func (a AudioConfig) BytesPerSecond() int {
	return a.SampleRate * a.Channels * (a.BitDepth / 8)
}

// DurationMS returns the duration of a byte count in milliseconds.
func (a AudioConfig) DurationMS(byteCount int) int {
	bps := a.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return byteCount * 1000 / bps
}

// BytesForDurationMS returns the byte count for a duration in milliseconds.
func (a AudioConfig) BytesForDurationMS(ms int) int {
	return a.BytesPerSecond() * ms / 1000
}
