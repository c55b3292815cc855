package coach

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// InterestsList is the fixed set of interests a user can pick from.
var InterestsList = []string{
	"Technology", "Travel", "Fitness", "Movies", "Cooking",
	"Business", "Science", "History", "Music", "Art",
	"Gaming", "Psychology", "Space", "Fashion", "Politics",
	"Literature", "Nature", "Photography", "Philosophy", "Sports",
}

// fallbackTopics is served when generation fails, so a conversation can
// always start.
var fallbackTopics = []string{
	"Future of Technology",
	"Healthy Living Habits",
	"Travel Experiences",
	"Favorite Movies",
	"Career Goals",
}

var topicsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"topics": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"topics"},
}

// NextTopics suggests five conversation topics. With no current topic it
// produces starters from the user's interests; otherwise it evolves the
// finished topic into related niches. Generation failures fall back to a
// static list rather than erroring.
func (c *Client) NextTopics(ctx context.Context, currentTopic string, interests []string) []string {
	prompt := topicsPrompt(currentTopic, interests)

	var payload struct {
		Topics []string `json:"topics"`
	}
	if err := c.generateJSON(ctx, prompt, topicsSchema, &payload); err != nil || len(payload.Topics) == 0 {
		if err != nil {
			c.logger.Warn("topic generation failed, serving fallback", "error", err)
		}
		return fallbackTopics
	}
	return payload.Topics
}

func topicsPrompt(currentTopic string, interests []string) string {
	joined := strings.Join(interests, ", ")
	if currentTopic == "" {
		return fmt.Sprintf(`The user is interested in: %s.
Generate 5 engaging, distinct conversation starters (topics) suitable for an English learner.
Keep them concise (under 10 words).`, joined)
	}
	return fmt.Sprintf(`The user is interested in: %s.
We just finished discussing: %q.
Generate 5 new conversation sub-topics to evolve the discussion naturally.
They should be related to the previous topic but explore specific niches or branch out to other user interests.
Keep them concise (under 10 words).`, joined, currentTopic)
}
