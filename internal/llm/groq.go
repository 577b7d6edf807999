package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smart-pantry/internal/config"
	"smart-pantry/internal/shared"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel  = "llama-3.3-70b-versatile"
)

// GroqOption configures the Groq client.
type GroqOption func(*groqClient)

// WithGroqURL points the client at a different chat completions endpoint.
func WithGroqURL(url string) GroqOption {
	return func(c *groqClient) {
		c.url = url
	}
}

// WithGroqModel overrides the model name.
func WithGroqModel(model string) GroqOption {
	return func(c *groqClient) {
		c.model = model
	}
}

// WithSystemPrompt sends prompt as a system message before every request.
func WithSystemPrompt(prompt string) GroqOption {
	return func(c *groqClient) {
		c.systemPrompt = prompt
	}
}

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey       string
	url          string
	model        string
	systemPrompt string
	httpClient   *http.Client
}

// NewGroqClient creates a new Groq API client. Responses are requested in
// JSON mode.
func NewGroqClient(cfg *config.Config, opts ...GroqOption) TextGenerator {
	c := &groqClient{
		apiKey: cfg.GroqAPIKey,
		url:    groqAPIURL,
		model:  groqModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	var messages []groqMessage
	if c.systemPrompt != "" {
		messages = append(messages, groqMessage{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, groqMessage{Role: "user", Content: prompt})

	reqBody := map[string]any{
		"model":           c.model,
		"messages":        messages,
		"temperature":     0.7,
		"max_tokens":      4000,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var groqResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(groqResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	model := groqResp.Model
	if model == "" {
		model = c.model
	}
	return ContentResponse{
		Content: groqResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     groqResp.Usage.PromptTokens,
			CompletionTokens: groqResp.Usage.CompletionTokens,
			TotalTokens:      groqResp.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}
