package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": reply,
					},
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClassify(t *testing.T) {
	srv := fakeCompletionServer(t, "Positive.")

	c, err := NewOpenAIClassifier(OpenAIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	label, err := c.Classify(context.Background(), "great stuff")
	require.NoError(t, err)
	assert.Equal(t, Positive, label)
}

func TestOpenAIClassifyNegative(t *testing.T) {
	srv := fakeCompletionServer(t, "negative")

	c, err := NewOpenAIClassifier(OpenAIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	label, err := c.Classify(context.Background(), "awful stuff")
	require.NoError(t, err)
	assert.Equal(t, Negative, label)
}

func TestOpenAIClassifyUnexpectedVerdict(t *testing.T) {
	srv := fakeCompletionServer(t, "it depends")

	c, err := NewOpenAIClassifier(OpenAIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "meh")
	assert.Error(t, err)
}

func TestNewOpenAIClassifierRequiresKeyForCloud(t *testing.T) {
	_, err := NewOpenAIClassifier(OpenAIConfig{})
	assert.Error(t, err)
}
