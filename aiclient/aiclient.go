// Package aiclient defines the AI collaborator contract the response
// formatter's "ai" mode calls through.
package aiclient

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by NoOpAIClient.GenerateResponse, and by any
// AIClient whose backing collaborator could not be reached.
var ErrUnavailable = errors.New("ai collaborator unavailable")

// AIClient provides a unified interface for different AI providers.
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string, options *GenerationOptions) (*AIResponse, error)
	GetProviderInfo() ProviderInfo
}

// GenerationOptions configures AI generation parameters.
type GenerationOptions struct {
	Model        string            `json:"model,omitempty"`
	Temperature  float64           `json:"temperature,omitempty"`
	MaxTokens    int               `json:"max_tokens,omitempty"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AIResponse represents a complete AI model response.
type AIResponse struct {
	Content      string            `json:"content"`
	Model        string            `json:"model"`
	Usage        TokenUsage        `json:"usage"`
	FinishReason string            `json:"finish_reason"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TokenUsage tracks API usage.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderInfo contains AI provider details.
type ProviderInfo struct {
	Name    string   `json:"name"`
	Models  []string `json:"models"`
	Version string   `json:"version"`
}

// NoOpAIClient is unavailable by construction — GenerateResponse always
// fails, so callers (the formatter's "ai" mode) exercise the "collaborator
// unavailable" degradation path without needing a real API key.
type NoOpAIClient struct{}

func (NoOpAIClient) GenerateResponse(context.Context, string, *GenerationOptions) (*AIResponse, error) {
	return nil, ErrUnavailable
}

func (NoOpAIClient) GetProviderInfo() ProviderInfo {
	return ProviderInfo{Name: "none", Version: "n/a"}
}
