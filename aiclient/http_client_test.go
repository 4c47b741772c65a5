package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientGenerateResponseParsesChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"message":       map[string]interface{}{"content": "good evening"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12},
		})
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", server.URL, "gpt-test")
	resp, err := client.GenerateResponse(context.Background(), "say hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "good evening", resp.Content)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestHTTPClientGenerateResponseWrapsUnavailableOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient("test-key", server.URL, "gpt-test")
	_, err := client.GenerateResponse(context.Background(), "say hi", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNoOpAIClientAlwaysUnavailable(t *testing.T) {
	client := NoOpAIClient{}
	_, err := client.GenerateResponse(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
