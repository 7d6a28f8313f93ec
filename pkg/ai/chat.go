package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	moonshotDefaultBaseURL = "https://api.moonshot.ai/v1"
	moonshotDefaultModel   = "kimi-k2.5"
	openAIDefaultBaseURL   = "https://api.openai.com/v1"
	openAIDefaultModel     = "gpt-4o-mini"
)

// ChatClient implements Generator over an OpenAI-compatible chat
// completions endpoint (OpenAI itself, Moonshot/Kimi, ...).
type ChatClient struct {
	httpClient *http.Client
	provider   string
	apiKey     string
	model      string
	baseURL    string
}

// Ensure ChatClient implements Generator
var _ Generator = (*ChatClient)(nil)

// NewMoonshotClient creates a client for the Moonshot API.
func NewMoonshotClient(apiKey, model string) *ChatClient {
	return newChatClient("moonshot", apiKey, model, moonshotDefaultModel, moonshotDefaultBaseURL)
}

// NewOpenAIClient creates a client for the OpenAI API.
func NewOpenAIClient(apiKey, model string) *ChatClient {
	return newChatClient("openai", apiKey, model, openAIDefaultModel, openAIDefaultBaseURL)
}

func newChatClient(provider, apiKey, model, defaultModel, baseURL string) *ChatClient {
	if model == "" {
		model = defaultModel
	}
	return &ChatClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		provider:   provider,
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// GenerateText sends the system prompt and prompt and returns the reply.
func (c *ChatClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.4,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API error (status %d): %s", c.provider, resp.StatusCode, string(respBytes))
	}

	var result chatResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.provider, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return result.Choices[0].Message.Content, nil
}

// Close is a no-op for the HTTP-based clients
func (c *ChatClient) Close() error {
	return nil
}
