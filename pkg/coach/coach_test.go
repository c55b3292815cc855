package coach

import (
	"context"
	"strings"
	"testing"

	"github.com/fluentloop/fluentloop/pkg/core"
)

func TestDecodeJSON_Evaluation(t *testing.T) {
	var payload struct {
		Delta  float64 `json:"delta"`
		Reason string  `json:"reason"`
	}
	if err := decodeJSON([]byte(`{"delta": -4, "reason": "off topic reply"}`), &payload); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if payload.Delta != -4 || payload.Reason != "off topic reply" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	var out map[string]any
	err := decodeJSON([]byte(`{"delta": `), &out)
	if !core.IsType(err, core.ErrMalformedResponse) {
		t.Fatalf("error = %v, want malformed response", err)
	}
}

func TestEvaluationPrompt(t *testing.T) {
	p := evaluationPrompt("How was lunch?", "It was nice meal")
	if !strings.Contains(p, "How was lunch?") || !strings.Contains(p, "It was nice meal") {
		t.Errorf("prompt missing inputs: %s", p)
	}
	if !strings.Contains(p, `"delta"`) || !strings.Contains(p, `"reason"`) {
		t.Errorf("prompt missing output contract: %s", p)
	}
}

func TestSummaryPrompt(t *testing.T) {
	p := summaryPrompt("User: hi\nAI: hello", 62)
	if !strings.Contains(p, "62/100") {
		t.Errorf("prompt missing live score: %s", p)
	}
	if !strings.Contains(p, "User: hi") {
		t.Errorf("prompt missing transcript: %s", p)
	}
}

func TestTopicsPrompt(t *testing.T) {
	fresh := topicsPrompt("", []string{"Travel", "Music"})
	if !strings.Contains(fresh, "conversation starters") {
		t.Errorf("starter prompt wrong: %s", fresh)
	}
	followup := topicsPrompt("Street food culture", []string{"Travel"})
	if !strings.Contains(followup, "Street food culture") || !strings.Contains(followup, "sub-topics") {
		t.Errorf("follow-up prompt wrong: %s", followup)
	}
}

func TestVocabPrompt(t *testing.T) {
	p := vocabPrompt("User: I goed to the store", []string{"Elaborate", "NUANCE"})
	if !strings.Contains(p, "goed") {
		t.Errorf("prompt missing transcript: %s", p)
	}
	if !strings.Contains(p, "elaborate, nuance") {
		t.Errorf("exclusions not lowercased: %s", p)
	}
}

func TestVocabPrompt_TruncatesLongTranscript(t *testing.T) {
	long := strings.Repeat("word ", 3000)
	p := vocabPrompt(long, nil)
	if len(p) > maxMinedTranscript+500 {
		t.Errorf("prompt length = %d, transcript not truncated", len(p))
	}
}

func TestConversionPrompt(t *testing.T) {
	p := conversionPrompt("mera meeting kal hai boss ke saath")
	if !strings.Contains(p, "mera meeting kal hai") {
		t.Errorf("prompt missing input: %s", p)
	}
	for _, version := range []string{"Correct:", "Impressive:", "Native:"} {
		if !strings.Contains(p, version) {
			t.Errorf("prompt missing %s section: %s", version, p)
		}
	}
}

func TestConvertText_EmptyInput(t *testing.T) {
	c := &Client{}
	_, err := c.ConvertText(context.Background(), "   ")
	if !core.IsType(err, core.ErrInvalidRequest) {
		t.Fatalf("error = %v, want invalid request", err)
	}
}

func TestDecodeJSON_Conversion(t *testing.T) {
	raw := `{"correct":"I have a meeting with my boss tomorrow.",` +
		`"impressive":"I am scheduled to meet with my supervisor tomorrow.",` +
		`"native":"I've got a meeting with my boss tomorrow.",` +
		`"analysis":"Translated Hinglish into full English sentences."}`
	var out Conversion
	if err := decodeJSON([]byte(raw), &out); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if out.Correct == "" || out.Impressive == "" || out.Native == "" || out.Analysis == "" {
		t.Errorf("conversion = %+v", out)
	}
}
