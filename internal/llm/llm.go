// Package llm wraps the Gemini API behind the one call the pipeline needs:
// prompt in, text out. Structured data is pulled from the free-text response
// with ExtractJSON rather than trusted to arrive well-formed.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"autopress/internal/config"
)

// DefaultModel is the default Gemini model used for generation.
const DefaultModel = "gemini-flash-lite-latest"

// Client is a client for the Gemini generation service.
type Client struct {
	modelName string
	gClient   *genai.Client
}

// Options contains per-call generation options.
type Options struct {
	MaxTokens   int32   // Maximum number of tokens to generate
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model override (defaults to the client's model)
}

// NewClient creates a new LLM client. The API key is resolved from the
// environment (GEMINI_API_KEY and friends) or from config, in that order.
func NewClient(cfg config.GeminiConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if apiKey = os.Getenv("GEMINI_API_KEY"); apiKey == "" {
			apiKey = viper.GetString("ai.gemini.api_key")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in config")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// Complete sends a system prompt and a user prompt to the model and returns
// the raw response text. An empty response is an error.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	modelName := c.modelName
	if opts.Model != "" {
		modelName = opts.Model
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: userPrompt}},
		Role:  "user",
	}}

	var genCfg *genai.GenerateContentConfig
	if systemPrompt != "" || opts.MaxTokens > 0 || opts.Temperature > 0 {
		genCfg = &genai.GenerateContentConfig{}
		if systemPrompt != "" {
			genCfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			}
		}
		if opts.MaxTokens > 0 {
			genCfg.MaxOutputTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			temp := opts.Temperature
			genCfg.Temperature = &temp
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, modelName, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// ModelName returns the model the client was configured with.
func (c *Client) ModelName() string {
	return c.modelName
}
