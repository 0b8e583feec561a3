// Package llm adapts an OpenAI-compatible chat completion API as the
// text-generation provider for the build pipeline. DeepSeek is the default
// endpoint; any compatible server works.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/config"
)

// Tier selects which model handles a request.
type Tier string

const (
	// TierChat is the general-purpose generation model.
	TierChat Tier = "chat"

	// TierReasoner is the slower model used for planning.
	TierReasoner Tier = "reasoner"
)

// DegradedResult is returned when no API key is configured. Generation
// phases then succeed with a placeholder instead of failing.
const DegradedResult = "[LLM API key not configured - returning placeholder response]"

// ErrEmptyResponse indicates the provider returned no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// Client generates text through a langchaingo OpenAI-compatible model.
type Client struct {
	model         llms.Model
	chatModel     string
	reasonerModel string
	maxTokens     int
	temperature   float64
	logger        *zap.Logger
}

// New creates an LLM client. An unset API key is valid and puts the client
// into degraded mode; no connection is made until the first call.
func New(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		chatModel:     cfg.ChatModel,
		reasonerModel: cfg.ReasonerModel,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		logger:        logger,
	}

	if !cfg.APIKey.IsSet() {
		logger.Info("llm client running in degraded mode, no API key configured")
		return c, nil
	}

	model, err := openai.New(
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	c.model = model
	return c, nil
}

// Complete generates text from a system and user prompt using the model for
// the given tier. In degraded mode it returns DegradedResult and no error.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, tier Tier) (string, error) {
	if c.model == nil {
		return DegradedResult, nil
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithModel(c.modelFor(tier)),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(c.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("llm completion",
		zap.String("tier", string(tier)),
		zap.Int("response_len", len(resp.Choices[0].Content)),
	)
	return resp.Choices[0].Content, nil
}

func (c *Client) modelFor(tier Tier) string {
	if tier == TierReasoner {
		return c.reasonerModel
	}
	return c.chatModel
}
