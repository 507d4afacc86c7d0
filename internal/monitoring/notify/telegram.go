package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTelegramAPIURL is the public Bot API endpoint.
const DefaultTelegramAPIURL = "https://api.telegram.org"

const maxErrorBody = 64 << 10

type telegramRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          *bool  `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramChannel sends messages to one chat through the Bot API.
type TelegramChannel struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

// TelegramOption configures the telegram channel.
type TelegramOption func(*TelegramChannel)

// WithTelegramAPIURL overrides the Bot API base URL.
func WithTelegramAPIURL(apiURL string) TelegramOption {
	return func(ch *TelegramChannel) {
		if apiURL != "" {
			ch.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithTelegramClient overrides the HTTP client.
func WithTelegramClient(client *http.Client) TelegramOption {
	return func(ch *TelegramChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewTelegramChannel constructs a channel for a single chat.
func NewTelegramChannel(token, chatID string, opts ...TelegramOption) (*TelegramChannel, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram channel: empty bot token")
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, errors.New("telegram channel: empty chat id")
	}
	ch := &TelegramChannel{
		apiURL: DefaultTelegramAPIURL,
		token:  token,
		chatID: strings.TrimSpace(chatID),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch, nil
}

// Send calls sendMessage.
func (t *TelegramChannel) Send(ctx context.Context, content string) error {
	if t == nil {
		return fmt.Errorf("%w: telegram: nil channel", ErrSend)
	}
	body, err := json.Marshal(telegramRequest{ChatID: t.chatID, Text: content})
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", ErrSend, err)
	}
	endpoint := t.apiURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: telegram: build request failed", ErrSend)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", ErrSend, unwrapURLError(err))
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w: telegram: read response: %v", ErrSend, err)
	}

	var parsed telegramResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if parseErr == nil && parsed.OK != nil && !*parsed.OK {
			return fmt.Errorf("%w: telegram: %s", ErrSend, describe(parsed))
		}
		return nil
	}
	if parseErr != nil || parsed.Description == "" {
		return fmt.Errorf("%w: telegram: http %d with malformed error body", ErrSend, resp.StatusCode)
	}
	return fmt.Errorf("%w: telegram: http %d: %s", ErrSend, resp.StatusCode, parsed.Description)
}

func describe(resp telegramResponse) string {
	if resp.Description != "" {
		return resp.Description
	}
	if resp.ErrorCode != 0 {
		return fmt.Sprintf("error code %d", resp.ErrorCode)
	}
	return "request rejected"
}
