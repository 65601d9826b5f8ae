package telegram

import (
	"context"
	"strings"
	"time"

	"finsheet/internal/bot"
	"finsheet/internal/log"
)

const msgAccessDenied = "Access denied."

// Handler processes one authorized update.
type Handler interface {
	Handle(ctx context.Context, u bot.Update) []bot.Reply
}

// UpdateObserver counts inbound updates.
type UpdateObserver interface {
	ObserveBotUpdate(kind string, authorized bool)
}

type nopObserver struct{}

func (nopObserver) ObserveBotUpdate(string, bool) {}

// Bot polls Telegram and forwards updates from the allowed chat to the handler.
// Updates are handled one at a time, in order.
type Bot struct {
	client        *Client
	handler       Handler
	allowedChatID int64
	pollTimeout   time.Duration
	retryDelay    time.Duration
	observer      UpdateObserver
	logger        *log.Logger
}

type Config struct {
	BaseURL       string
	Token         string
	AllowedChatID int64
	PollTimeout   time.Duration
	Observer      UpdateObserver
}

func NewBot(cfg Config, handler Handler, logger *log.Logger) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Bot{
		client:        NewClient(cfg.BaseURL, cfg.Token, cfg.PollTimeout),
		handler:       handler,
		allowedChatID: cfg.AllowedChatID,
		pollTimeout:   cfg.PollTimeout,
		retryDelay:    5 * time.Second,
		observer:      cfg.Observer,
		logger:        logger.WithComponent(log.ComponentTelegram),
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried after a delay.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Telegram polling started", log.FieldChatID, b.allowedChatID)
	offset := 0
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("Telegram poll failed", log.FieldError, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.retryDelay):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			b.dispatch(ctx, u)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, u update) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if err := b.client.AnswerCallback(ctx, cq.ID); err != nil {
			b.logger.Warn("Failed to answer callback", log.FieldError, err)
		}
		if cq.Message == nil {
			return
		}
		chatID := cq.Message.Chat.ID
		if !b.allowed(ctx, "callback", chatID) {
			return
		}
		b.send(ctx, chatID, b.handler.Handle(ctx, bot.Update{
			Kind:   bot.KindCallback,
			UserID: cq.From.ID,
			ChatID: chatID,
			Data:   cq.Data,
		}))

	case u.Message != nil:
		msg := u.Message
		if !b.allowed(ctx, "message", msg.Chat.ID) {
			return
		}
		if up, ok := toUpdate(msg); ok {
			b.send(ctx, msg.Chat.ID, b.handler.Handle(ctx, up))
		}
	}
}

// allowed replies "access denied" to any chat other than the configured one.
func (b *Bot) allowed(ctx context.Context, kind string, chatID int64) bool {
	ok := chatID == b.allowedChatID
	b.observer.ObserveBotUpdate(kind, ok)
	if ok {
		return true
	}
	b.logger.Warn("Rejected update from unauthorized chat", log.FieldChatID, chatID)
	if err := b.client.SendMessage(ctx, chatID, msgAccessDenied, nil); err != nil {
		b.logger.Warn("Failed to send access denied", log.FieldChatID, chatID, log.FieldError, err)
	}
	return false
}

func (b *Bot) send(ctx context.Context, chatID int64, replies []bot.Reply) {
	for _, r := range replies {
		if err := b.client.SendMessage(ctx, chatID, r.Text, keyboard(r.Keyboard)); err != nil {
			b.logger.Error("Failed to send reply", log.FieldChatID, chatID, log.FieldError, err)
		}
	}
}

// toUpdate classifies a message as a command or free text. Empty messages
// (stickers, photos) are ignored.
func toUpdate(msg *message) (bot.Update, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return bot.Update{}, false
	}
	u := bot.Update{ChatID: msg.Chat.ID}
	if msg.From != nil {
		u.UserID = msg.From.ID
	} else {
		u.UserID = msg.Chat.ID
	}
	if !strings.HasPrefix(text, "/") {
		u.Kind, u.Text = bot.KindText, text
		return u, true
	}
	name, args, _ := strings.Cut(text[1:], " ")
	// "/add@finsheet_bot" in group chats
	name, _, _ = strings.Cut(name, "@")
	u.Kind, u.Command, u.Args = bot.KindCommand, name, strings.TrimSpace(args)
	return u, true
}

func keyboard(rows [][]bot.Button) [][]inlineButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]inlineButton, len(rows))
	for i, row := range rows {
		out[i] = make([]inlineButton, len(row))
		for j, btn := range row {
			out[i][j] = inlineButton{Text: btn.Text, CallbackData: btn.Data}
		}
	}
	return out
}
