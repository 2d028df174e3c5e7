// Package llm wraps an OpenAI-compatible chat completion API behind a
// single-prompt interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens is the maximum prompt length before truncation (in tokens).
	DefaultMaxTokens = 16000

	// DefaultTemperature keeps generations close to the provided context.
	DefaultTemperature = 0.2
)

const truncationMarker = "\n...\n"

var (
	ErrMissingAPIKey = errors.New("llm api key not set")
	ErrEmptyResponse = errors.New("model returned no choices")
)

// Model produces text for a prompt. Implementations must honour ctx cancellation.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config holds chat model settings.
type Config struct {
	APIKey      string
	BaseURL     string // Optional, for OpenAI-compatible endpoints
	Model       string
	MaxTokens   int
	Temperature *float64 // Nil means DefaultTemperature; zero is honoured
}

// OpenAIModel calls the chat completions API with retry on rate limits.
type OpenAIModel struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewOpenAIModel creates a chat model from cfg.
func NewOpenAIModel(cfg Config, logger *slog.Logger) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	m := &OpenAIModel{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: DefaultTemperature,
		logger:      logger,
	}
	if m.model == "" {
		m.model = DefaultModel
	}
	if m.maxTokens <= 0 {
		m.maxTokens = DefaultMaxTokens
	}
	if cfg.Temperature != nil {
		m.temperature = *cfg.Temperature
	}
	return m, nil
}

// Name returns the chat model identifier.
func (m *OpenAIModel) Name() string { return m.model }

// Generate sends prompt as a single user message and returns the first choice.
func (m *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(m.truncateContent(prompt)),
		},
		Model:       openai.ChatModel(m.model),
		Temperature: openai.Float(m.temperature),
	}

	var content string
	operation := func() error {
		resp, err := m.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyResponse)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return content, nil
}

// truncateContent fits content within the token limit, using a rough
// estimate of 4 characters per token. The middle is cut so the trailing
// instructions survive; cuts fall on rune boundaries.
func (m *OpenAIModel) truncateContent(content string) string {
	maxChars := m.maxTokens * 4

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	m.logger.Warn("truncating prompt",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", m.maxTokens)

	tail := maxChars / 4
	head := maxChars - tail - len(truncationMarker)
	if head < 0 {
		return string(runes[len(runes)-maxChars:])
	}
	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
