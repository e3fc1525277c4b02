package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("missing OpenAI API key")

// #region config
// Config holds connection and sampling settings. APIKey never comes from a file.
type Config struct {
	APIKey            string  `koanf:"-"`
	BaseURL           string  `koanf:"base_url"`
	Model             string  `koanf:"model" validate:"required"`
	MaxTokens         int     `koanf:"max_tokens" validate:"gte=1"`
	PlanMaxTokens     int     `koanf:"plan_max_tokens" validate:"gte=1"`
	Temperature       float32 `koanf:"temperature" validate:"gte=0,lte=2"`
	RequestsPerMinute int     `koanf:"requests_per_minute" validate:"gte=0"`
}

// DefaultConfig matches the deterministic sampling the prompts were written for.
func DefaultConfig() Config {
	return Config{
		Model:             openai.GPT4,
		MaxTokens:         2000,
		PlanMaxTokens:     1000,
		Temperature:       0,
		RequestsPerMinute: 20,
	}
}
// #endregion config

// #region client-struct
// ChatCompleter is the part of the OpenAI client this package uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates and refines file content through chat completions.
type Client struct {
	svc     ChatCompleter
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}
// #endregion client-struct

// #region constructor
// NewClient builds a client against the OpenAI API (or cfg.BaseURL).
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewClientWithService(openai.NewClientWithConfig(oc), cfg, logger), nil
}

// NewClientWithService creates a Client with an injected completion service.
// Used for testing without network access.
func NewClientWithService(svc ChatCompleter, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{svc: svc, cfg: cfg, limiter: rate.NewLimiter(limit, 1), logger: logger}
}
// #endregion constructor

// #region operations
// Plan asks for a numbered implementation plan given the relevant files.
func (c *Client) Plan(ctx context.Context, task string, files map[string]string) (string, error) {
	out, err := c.complete(ctx, planPrompt(task, files), c.cfg.PlanMaxTokens)
	if err != nil {
		return "", fmt.Errorf("plan: %w", err)
	}
	return out, nil
}

// Generate asks for the complete new content of the file for task.
func (c *Client) Generate(ctx context.Context, task, content string) (string, error) {
	out, err := c.complete(ctx, generatePrompt(task, content), c.cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return StripFences(out), nil
}

// Modify asks for a reviewed, corrected version of code.
func (c *Client) Modify(ctx context.Context, task, code string) (string, error) {
	out, err := c.complete(ctx, modifyPrompt(task, code), c.cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("modify: %w", err)
	}
	return StripFences(out), nil
}
// #endregion operations

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	start := time.Now()
	resp, err := c.svc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.cfg.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")

// StripFences removes a single surrounding markdown code fence, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
