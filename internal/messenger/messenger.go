// Package messenger доставляет текстовые уведомления подписчикам.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrForbidden: получатель навсегда отклонил доставку (бот заблокирован, чат удалён).
var ErrForbidden = errors.New("delivery forbidden by recipient")

// Channel отправляет текст по адресу получателя.
type Channel interface {
	Send(ctx context.Context, address, text string) error
}

// TelegramChannel шлёт сообщения через Bot API.
type TelegramChannel struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewTelegramChannel(baseURL, token string, timeout time.Duration) *TelegramChannel {
	return &TelegramChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type tgResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (c *TelegramChannel) Send(ctx context.Context, address, text string) error {
	form := url.Values{}
	form.Set("chat_id", address)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	endpoint := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var tr tgResponse
	_ = json.Unmarshal(body, &tr)

	if resp.StatusCode == http.StatusForbidden || tr.ErrorCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrForbidden, tr.Description)
	}
	if resp.StatusCode >= 300 || (len(body) > 0 && !tr.OK) {
		return fmt.Errorf("send message: http %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}

// LogChannel пишет сообщения в лог вместо отправки (локальный запуск без токена бота).
type LogChannel struct {
	logger *zap.SugaredLogger
}

func NewLogChannel(logger *zap.SugaredLogger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Send(_ context.Context, address, text string) error {
	c.logger.Infow("outgoing message", "address", address, "text", text)
	return nil
}
