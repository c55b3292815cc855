package coach

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/fluentloop/fluentloop/pkg/core/live"
)

var evaluationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"delta":  {Type: genai.TypeNumber},
		"reason": {Type: genai.TypeString},
	},
	Required: []string{"delta", "reason"},
}

// Evaluate scores one user utterance against the model turn that preceded
// it. Implements live.Evaluator.
func (c *Client) Evaluate(ctx context.Context, modelContext, userText string) (live.Evaluation, error) {
	prompt := evaluationPrompt(modelContext, userText)

	var payload struct {
		Delta  float64 `json:"delta"`
		Reason string  `json:"reason"`
	}
	if err := c.generateJSON(ctx, prompt, evaluationSchema, &payload); err != nil {
		return live.Evaluation{}, err
	}
	return live.Evaluation{
		Delta:  int(payload.Delta),
		Reason: payload.Reason,
	}, nil
}

func evaluationPrompt(modelContext, userText string) string {
	return fmt.Sprintf(`Context (AI said): %q
User Response: %q

Task: Score the User Response based on relevance, grammar, and flow.
Return a JSON object with:
1. "delta": a number between -10 and +10. (Negative for errors/irrelevance, Positive for good answers).
2. "reason": 3 word reason.`, modelContext, userText)
}
