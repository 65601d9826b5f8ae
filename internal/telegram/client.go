// Package telegram is the chat transport: a long-polling Telegram Bot API
// client that feeds the conversation state machine and gates access to a
// single chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.telegram.org"

// Client calls the Bot API. Outgoing calls share a rate limiter to stay under
// Telegram's flood limits.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL, token string, pollTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: pollTimeout + 10*time.Second},
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}
}

func (c *Client) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, name)
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]update, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("timeout", strconv.Itoa(int(timeout.Seconds())))
	q.Set("allowed_updates", `["message","callback_query"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.method("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var body updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("getUpdates: decode: %w", err)
	}
	if !body.OK {
		return nil, fmt.Errorf("getUpdates: %d %s", resp.StatusCode, body.Description)
	}
	return body.Result, nil
}

// SendMessage sends plain text, with an inline keyboard when given.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]inlineButton) error {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if len(keyboard) > 0 {
		req.ReplyMarkup = &inlineKeyboard{InlineKeyboard: keyboard}
	}
	return c.post(ctx, "sendMessage", req)
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, id string) error {
	return c.post(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: id})
}

func (c *Client) post(ctx context.Context, name string, payload any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.method(name), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%s: decode: %w", name, err)
	}
	if !out.OK {
		return fmt.Errorf("%s: %d %s", name, resp.StatusCode, out.Description)
	}
	return nil
}
