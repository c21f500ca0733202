package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adeilh/digitally/httpx"
)

// Telegram posts Markdown messages through the Bot API.
type Telegram struct {
	client *httpx.Client
	token  string
	chatID string
}

// NewTelegram returns a channel for chatID. An empty baseURL means the
// public Bot API.
func NewTelegram(baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		client: httpx.NewClient(httpx.WithBaseURL(strings.TrimRight(baseURL, "/")), httpx.WithClientTimeout(10*time.Second)),
		token:  strings.TrimSpace(token),
		chatID: strings.TrimSpace(chatID),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, m Message) error {
	if t.token == "" || t.chatID == "" {
		return ErrNotConfigured
	}
	body := map[string]string{
		"chat_id":    t.chatID,
		"text":       m.Text,
		"parse_mode": "Markdown",
	}
	if _, err := t.client.Post(ctx, "/bot"+t.token+"/sendMessage", body, nil); err != nil {
		return fmt.Errorf("notify: telegram: %w", err)
	}
	return nil
}
