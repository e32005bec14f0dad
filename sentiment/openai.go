package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/almightycouch/twittex/errors"
)

const classifyPrompt = "Classify the sentiment of the following tweet. " +
	"Reply with exactly one word: positive or negative.\n\nTweet: %s"

// OpenAIClassifier delegates classification to an OpenAI-compatible chat
// completion API. Works with OpenAI cloud as well as self-hosted
// compatible services such as LocalAI or Ollama.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// OpenAIConfig configures the remote classifier.
type OpenAIConfig struct {
	// APIKey for authentication. Optional for local services.
	APIKey string

	// BaseURL overrides the API endpoint. Empty means OpenAI cloud.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout for HTTP requests (default: 30s).
	Timeout time.Duration

	// Logger for diagnostics (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// NewOpenAIClassifier creates a remote classifier.
func NewOpenAIClassifier(cfg OpenAIConfig) (*OpenAIClassifier, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, errors.WrapInvalid(errors.ErrMissingCredentials,
				"OpenAIClassifier", "NewOpenAIClassifier", "api key is required for the cloud endpoint")
		}
		apiKey = "dummy-key" // Local services don't need a real key
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}, nil
}

// Classify asks the model for a one-word sentiment verdict.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Label, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(classifyPrompt, text),
			},
		},
		MaxTokens:   4,
		Temperature: 0,
	})
	if err != nil {
		return "", errors.WrapTransient(err, "OpenAIClassifier", "Classify", "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidData,
			"OpenAIClassifier", "Classify", "completion returned no choices")
	}

	verdict := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	verdict = strings.Trim(verdict, ".!")
	switch verdict {
	case string(Positive):
		return Positive, nil
	case string(Negative):
		return Negative, nil
	default:
		c.logger.Warn("unexpected sentiment verdict", "verdict", verdict)
		return "", errors.WrapInvalid(errors.ErrParsingFailed,
			"OpenAIClassifier", "Classify", fmt.Sprintf("unexpected verdict %q", verdict))
	}
}
