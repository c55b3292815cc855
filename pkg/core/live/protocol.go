package live

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/fluentloop/fluentloop/pkg/core"
)

const (
	liveHost = "generativelanguage.googleapis.com"
	livePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
)

// liveEndpoint builds the websocket URL for a bidi session.
func liveEndpoint(apiKey string) string {
	u := url.URL{
		Scheme:   "wss",
		Host:     liveHost,
		Path:     livePath,
		RawQuery: url.Values{"key": {apiKey}}.Encode(),
	}
	return u.String()
}

// Wire frames, camelCase per the remote API.

type setupMessage struct {
	Setup *setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *wireContent      `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput *realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Media *inlineData `json:"media,omitempty"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type serverContent struct {
	InputTranscription  *transcriptionPayload `json:"inputTranscription,omitempty"`
	OutputTranscription *transcriptionPayload `json:"outputTranscription,omitempty"`
	ModelTurn           *wireContent          `json:"modelTurn,omitempty"`
	TurnComplete        bool                  `json:"turnComplete,omitempty"`
	Interrupted         bool                  `json:"interrupted,omitempty"`
}

type transcriptionPayload struct {
	Text string `json:"text"`
}

// buildSetup translates a session Config into the setup frame sent once
// after dial.
func buildSetup(cfg Config) setupMessage {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	payload := &setupPayload{
		Model: model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if cfg.Voice != "" {
		payload.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		payload.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.InputTranscription {
		payload.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		payload.OutputAudioTranscription = &struct{}{}
	}
	return setupMessage{Setup: payload}
}

// buildMediaFrame wraps one capture frame of 16 kHz mono PCM for sending.
func buildMediaFrame(pcm []byte, sampleRate int) realtimeInputMessage {
	return realtimeInputMessage{
		RealtimeInput: &realtimeInput{
			Media: &inlineData{
				MIMEType: "audio/pcm;rate=" + strconv.Itoa(sampleRate),
				Data:     base64.StdEncoding.EncodeToString(pcm),
			},
		},
	}
}

// decodeServerFrame turns one inbound text frame into zero or more events.
// Transcript, audio, and control content may share a single frame; emission
// order is transcripts, audio parts, then control.
func decodeServerFrame(data []byte, defaultRate int) ([]Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, core.NewMalformedResponseError("decode server frame", err)
	}

	if msg.SetupComplete != nil {
		return nil, nil
	}
	sc := msg.ServerContent
	if sc == nil {
		return nil, nil
	}

	var events []Event
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, &TranscriptDeltaEvent{Role: RoleUser, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, &TranscriptDeltaEvent{Role: RoleModel, Text: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, core.NewMalformedResponseError("decode audio payload", err)
			}
			rate := parseRateFromMIME(part.InlineData.MIMEType, defaultRate)
			events = append(events, &AudioChunkEvent{Data: raw, SampleRate: rate})
		}
	}
	if sc.Interrupted {
		events = append(events, &InterruptedEvent{})
	}
	if sc.TurnComplete {
		events = append(events, &TurnCompleteEvent{})
	}
	return events, nil
}

// parseRateFromMIME extracts the rate parameter from a mime type such as
// "audio/pcm;rate=24000". Falls back to def when absent or invalid.
func parseRateFromMIME(mime string, def int) int {
	for _, param := range strings.Split(mime, ";") {
		param = strings.TrimSpace(param)
		if rest, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return def
}
