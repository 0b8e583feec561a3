// Package telegram delivers chat notifications through the Telegram bot API.
//
// Delivery is best-effort by contract: Notify reports success as a boolean
// and never returns an error, so a broken sink can never affect build state.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/config"
)

// defaultBaseURL is the Telegram bot API endpoint.
const defaultBaseURL = "https://api.telegram.org"

// Client sends messages to a single configured chat.
type Client struct {
	botToken   config.Secret
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New creates a Telegram client. Missing credentials are tolerated; Notify
// then always reports failure.
func New(cfg config.TelegramConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Notify sends a Markdown message to the configured chat and reports whether
// it was delivered.
func (c *Client) Notify(ctx context.Context, text string) bool {
	if !c.botToken.IsSet() || c.chatID == "" {
		c.logger.Debug("telegram not configured, dropping notification")
		return false
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		c.logger.Error("failed to encode telegram message", zap.Error(err))
		return false
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken.Value())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("failed to create telegram request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("telegram send failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("telegram send rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail),
		)
		return false
	}
	return true
}
