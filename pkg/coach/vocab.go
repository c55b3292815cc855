package coach

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// VocabCard is one mined vocabulary suggestion.
type VocabCard struct {
	Word            string `json:"word"`
	Definition      string `json:"definition"`
	ExampleSentence string `json:"exampleSentence"`
	Context         string `json:"contextFromSession"`
}

const maxMinedTranscript = 5000

var vocabSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"word":               {Type: genai.TypeString},
					"definition":         {Type: genai.TypeString},
					"exampleSentence":    {Type: genai.TypeString},
					"contextFromSession": {Type: genai.TypeString, Description: "Brief quote or context from transcript where this applies"},
				},
			},
		},
	},
	Required: []string{"items"},
}

// MineVocabulary extracts three vocabulary suggestions from a session
// transcript, excluding words the user already collected.
func (c *Client) MineVocabulary(ctx context.Context, transcript string, exclude []string) ([]VocabCard, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}
	prompt := vocabPrompt(transcript, exclude)

	var payload struct {
		Items []VocabCard `json:"items"`
	}
	if err := c.generateJSON(ctx, prompt, vocabSchema, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func vocabPrompt(transcript string, exclude []string) string {
	if len(transcript) > maxMinedTranscript {
		transcript = transcript[:maxMinedTranscript]
	}
	lowered := make([]string, len(exclude))
	for i, w := range exclude {
		lowered[i] = strings.ToLower(w)
	}
	return fmt.Sprintf(`Analyze this English conversation transcript.
Identify 3 advanced or useful vocabulary words that would improve the speaker's English.
These could be words they used incorrectly, words they *should* have used instead of simple words, or advanced terms relevant to the topic.

Transcript: %q

Exclude these words if found: %s.

Return exactly 3 items in JSON.`, transcript, strings.Join(lowered, ", "))
}
