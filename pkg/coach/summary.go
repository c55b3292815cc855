package coach

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":    {Type: genai.TypeNumber},
		"feedback": {Type: genai.TypeString},
	},
	Required: []string{"score", "feedback"},
}

// Summarize analyzes the whole session transcript and produces a final
// score plus one-line feedback. Implements live.Summarizer.
func (c *Client) Summarize(ctx context.Context, transcript string, liveScore int, duration time.Duration) (int, string, error) {
	prompt := summaryPrompt(transcript, liveScore)

	var payload struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := c.generateJSON(ctx, prompt, summarySchema, &payload); err != nil {
		return 0, "", err
	}
	return int(payload.Score), payload.Feedback, nil
}

func summaryPrompt(transcript string, liveScore int) string {
	return fmt.Sprintf(`Analyze this transcript of an English learner's practice session.

TRANSCRIPT:
%s

The user ended with a real-time tracking score of %d/100.
Provide a final Score (0-100) that considers this but validates against the whole conversation.
Provide a concise 1-sentence positive feedback and 1-sentence area for improvement.`, transcript, liveScore)
}
