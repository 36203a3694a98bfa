package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/envutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  envutil.String("OPENAI_API_KEY", ""),
		BaseURL: envutil.String("OPENAI_BASE_URL", ""),
		Model:   envutil.String("EXTRACTION_LLM_MODEL", "gpt-4o-mini"),
		Timeout: envutil.Duration("OPENAI_TIMEOUT_SECONDS", 20*time.Second),
	}
}

// Client wraps the chat completions endpoint for JSON-answering prompts.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
}

// New returns (nil, nil) when no API key is configured.
func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("openai: logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log.With("client", "OpenAI"),
	}, nil
}

// WithMetrics records call counts and latency on m. A nil m records nothing.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	if c != nil {
		c.metrics = m
	}
	return c
}

// CompleteJSON sends one system+user exchange and returns the raw message content.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai: client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.metrics.ObserveLLMRequest(c.model, "error", time.Since(start))
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.metrics.ObserveLLMRequest(c.model, "empty", time.Since(start))
		return "", fmt.Errorf("openai chat completion: empty choices")
	}
	c.metrics.ObserveLLMRequest(c.model, "ok", time.Since(start))
	c.log.Debug("openai completion",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}
