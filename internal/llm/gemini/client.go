package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
	"github.com/lettersontherocks/AI-Interview/internal/models"
)

const providerName = "gemini"

// Client is the Gemini implementation of llm.Provider.
type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GenerateContent sends a single-turn prompt and returns the text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	startTime := time.Now()
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return nil, classifyError(err)
	}

	if result == nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}

	text, err := result.Text()
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Failed to extract response text",
			Err:      err,
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content:   text,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       providerName,
			Model:          c.config.Model,
		},
	}, nil
}

func (c *Client) GetProviderName() string {
	return providerName
}

func classifyError(err error) *llm.ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeTimeout, Message: "Generation timed out", Err: err}
	case isRateLimitError(err):
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	default:
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeServiceDown, Message: "Failed to generate content", Err: err}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}
