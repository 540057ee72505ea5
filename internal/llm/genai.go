package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIClient generates text through Google's Gemini API.
type GenAIClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenAIClient creates a Gemini generation client.
func NewGenAIClient(apiKey, model string, temperature float64) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai generation requires an API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClient{
		client:      client,
		model:       model,
		temperature: float32(temperature),
	}, nil
}

// Complete submits prompt and returns the model's text output.
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(c.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai returned no text")
	}
	return text, nil
}

// Name returns the client name.
func (c *GenAIClient) Name() string {
	return fmt.Sprintf("genai:%s", c.model)
}
