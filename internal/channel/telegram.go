package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTelegramAPIBase = "https://api.telegram.org"
	defaultTelegramTimeout = 8 * time.Second
)

// TelegramChannel delivers operator notifications through the Telegram Bot
// API sendMessage method. Recipients are chat ids.
type TelegramChannel struct {
	token   string
	apiBase string
	http    *http.Client
}

// NewTelegramChannel builds a channel for the given bot token. An empty
// apiBase selects the public Telegram endpoint.
func NewTelegramChannel(token, apiBase string) *TelegramChannel {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = defaultTelegramAPIBase
	}
	return &TelegramChannel{
		token:   strings.TrimSpace(token),
		apiBase: apiBase,
		http:    &http.Client{},
	}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) SendText(ctx context.Context, chatID, text string) error {
	if c.token == "" {
		return fmt.Errorf("channel telegram requires a bot token")
	}
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("channel telegram requires a chat id")
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultTelegramTimeout)
	defer cancel()

	endpoint := c.apiBase + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
