package insight

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/sales-analysis/internal/aggregate"
)

// DefaultModelName is the Gemini model used for captions.
const DefaultModelName = "gemini-2.5-flash"

// maxPromptPartitions bounds how many partitions are described to the model.
const maxPromptPartitions = 20

// Generator sends a text prompt to a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini is a Generator backed by the Gemini API. Credentials come from the
// environment (GOOGLE_API_KEY or application default credentials).
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator. An empty model selects DefaultModelName.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate returns the model's text response to prompt.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

// Captioner summarises chart data in one sentence.
type Captioner struct {
	gen Generator
}

// NewCaptioner creates a Captioner using gen.
func NewCaptioner(gen Generator) *Captioner {
	return &Captioner{gen: gen}
}

// Caption asks the model for a one-sentence summary of partitions.
func (c *Captioner) Caption(ctx context.Context, title string, partitions []aggregate.Partition) (string, error) {
	raw, err := c.gen.Generate(ctx, BuildPrompt(title, partitions))
	if err != nil {
		return "", fmt.Errorf("Caption: %w", err)
	}

	caption := cleanCaption(raw)
	if caption == "" {
		return "", errors.New("Caption: empty response from model")
	}
	return caption, nil
}

// BuildPrompt describes a chart's partitions for the model.
func BuildPrompt(title string, partitions []aggregate.Partition) string {
	var b strings.Builder
	b.WriteString("You are a retail sales analyst summarising a Diwali sales chart.\n\n")
	b.WriteString("Chart: " + title + "\n")
	b.WriteString("Bars, largest first:\n")

	shown := partitions
	if len(shown) > maxPromptPartitions {
		shown = shown[:maxPromptPartitions]
	}
	for _, p := range shown {
		b.WriteString("- " + p.Label() + ": " + strconv.FormatFloat(p.Value, 'f', -1, 64) + "\n")
	}
	if rest := len(partitions) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "- (%d more bars omitted)\n", rest)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Reply with ONE plain sentence of at most 20 words.\n")
	b.WriteString("- Mention the leading bar and how it compares to the rest.\n")
	b.WriteString("- Do NOT use Markdown, quotes or code fences.\n")
	return b.String()
}

func cleanCaption(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[:idx]
	}

	s = strings.Trim(strings.TrimSpace(s), `"'*`)
	return strings.TrimSpace(s)
}
