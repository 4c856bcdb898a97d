package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"gamelo-backend/internal/config"
)

// Telegram posts operational messages to the ops channel via the Bot API.
//
// Delivery is best-effort with bounded retries; a Telegram outage must never
// surface to a buyer. Errors are logged and swallowed by Send.
type Telegram struct {
	client *retryablehttp.Client
	log    *slog.Logger

	baseURL string
	token   string
	chatID  string

	NotifyNewOrders bool
	NotifyDisputes  bool
}

// NewTelegram returns nil when the credentials are not configured; callers
// treat a nil notifier as disabled.
func NewTelegram(cfg config.TelegramConfig, log *slog.Logger) *Telegram {
	if !cfg.Enabled() {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Telegram{
		client:          client,
		log:             log,
		baseURL:         "https://api.telegram.org",
		token:           cfg.BotToken,
		chatID:          cfg.ChatID,
		NotifyNewOrders: cfg.NotifyNewOrders,
		NotifyDisputes:  cfg.NotifyDisputes,
	}
}

// Send posts an HTML-formatted message. Never returns an error to the caller.
func (t *Telegram) Send(ctx context.Context, html string) {
	if t == nil || html == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       html,
		"parse_mode": "HTML",
	})
	if err != nil {
		t.log.Error("telegram payload marshal failed", "error", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", url, payload)
	if err != nil {
		t.log.Error("telegram request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Error("telegram send failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.log.Error("telegram send rejected", "status", resp.StatusCode, "body", string(body))
	}
}
