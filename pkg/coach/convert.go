package coach

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fluentloop/fluentloop/pkg/core"
)

// Conversion holds three English renderings of one utterance plus a short
// note on what was fixed.
type Conversion struct {
	Correct    string `json:"correct"`
	Impressive string `json:"impressive"`
	Native     string `json:"native"`
	Analysis   string `json:"analysis"`
}

var conversionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"correct":    {Type: genai.TypeString},
		"impressive": {Type: genai.TypeString},
		"native":     {Type: genai.TypeString},
		"analysis":   {Type: genai.TypeString},
	},
	Required: []string{"correct", "impressive", "native", "analysis"},
}

// ConvertText rewrites broken or mixed-language input into three English
// versions: correct, impressive, and native.
func (c *Client) ConvertText(ctx context.Context, input string) (Conversion, error) {
	if strings.TrimSpace(input) == "" {
		return Conversion{}, core.NewInvalidRequestErrorWithParam("input must not be empty", "input")
	}

	var out Conversion
	if err := c.generateJSON(ctx, conversionPrompt(input), conversionSchema, &out); err != nil {
		return Conversion{}, err
	}
	return out, nil
}

func conversionPrompt(input string) string {
	return fmt.Sprintf(`You are an expert linguist and communication coach.

INPUT: %q
(The input might be broken English, mixed Hindi-English/Hinglish, or just a raw idea).

TASK: Transform this input into three distinct English versions:
1. Correct: Grammatically perfect, neutral tone. Clear and simple.
2. Impressive: Formal, professional, or sophisticated vocabulary. Good for business.
3. Native: Casual, idiomatic, natural flow. How a native speaker would say it to a friend.

Also provide a 1-sentence analysis of what was fixed.

Return JSON only.`, input)
}
