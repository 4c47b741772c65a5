package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient implements AIClient against a chat-completions-shaped HTTP
// API: messages array in, choices[0].message.content and a usage block
// out, generalized so baseURL/model selection are not hardcoded to one
// vendor.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient. baseURL is the chat-completions
// endpoint root (e.g. "https://api.openai.com/v1"); model is the default
// model name used when GenerationOptions.Model is empty.
func NewHTTPClient(apiKey, baseURL, model string) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *HTTPClient) GenerateResponse(ctx context.Context, prompt string, options *GenerationOptions) (*AIResponse, error) {
	if options == nil {
		options = &GenerationOptions{Model: c.model, Temperature: 0.7, MaxTokens: 1000}
	}
	if options.Model == "" {
		options.Model = c.model
	}

	messages := []map[string]string{{"role": "user", "content": prompt}}
	if options.SystemPrompt != "" {
		messages = append([]map[string]string{{"role": "system", "content": options.SystemPrompt}}, messages...)
	}

	payload := map[string]interface{}{
		"model":       options.Model,
		"messages":    messages,
		"temperature": options.Temperature,
		"max_tokens":  options.MaxTokens,
	}

	response, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	choices, ok := response["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return nil, fmt.Errorf("%w: response had no choices", ErrUnavailable)
	}
	choice, _ := choices[0].(map[string]interface{})
	msg, _ := choice["message"].(map[string]interface{})
	content, _ := msg["content"].(string)
	finishReason, _ := choice["finish_reason"].(string)

	usage := TokenUsage{}
	if raw, ok := response["usage"].(map[string]interface{}); ok {
		usage.PromptTokens = intFromFloat(raw["prompt_tokens"])
		usage.CompletionTokens = intFromFloat(raw["completion_tokens"])
		usage.TotalTokens = intFromFloat(raw["total_tokens"])
	}

	return &AIResponse{
		Model:        options.Model,
		Content:      content,
		Usage:        usage,
		FinishReason: finishReason,
	}, nil
}

func (c *HTTPClient) GetProviderInfo() ProviderInfo {
	return ProviderInfo{Name: "http-chat", Models: []string{c.model}, Version: "v1"}
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collaborator returned status %d", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func intFromFloat(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
