// Package bot is the chat conversation state machine. It turns commands,
// button presses and free text into ledger calls and text replies, and knows
// nothing about the chat transport.
package bot

import (
	"context"
	"errors"
	"strings"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/ledger"
	"finsheet/internal/log"
	"finsheet/internal/session"
)

type Kind int

const (
	KindCommand Kind = iota
	KindCallback
	KindText
)

// Update is one inbound chat event from an authorized chat.
type Update struct {
	Kind    Kind
	UserID  int64
	ChatID  int64
	Command string // without the leading slash
	Args    string
	Data    string // callback payload
	Text    string
}

// Ledger is the part of ledger.Service the conversation uses.
type Ledger interface {
	Append(ctx context.Context, in ledger.Input) (ledger.Receipt, error)
	Seed(ctx context.Context, opening core.Balances) (string, bool, error)
	Balances(ctx context.Context, partition string, currency core.Currency) (map[core.Currency]core.CurrencyBalance, error)
	History(ctx context.Context, partition string, currency core.Currency, skip, take int) (core.HistoryPage, error)
	Categories(ctx context.Context, partition string, currency core.Currency) ([]core.CategorySummary, error)
	Registry() *layout.Registry
}

type Conversation struct {
	ledger   Ledger
	sessions session.Store
	logger   *log.Logger
}

func New(l Ledger, sessions session.Store, logger *log.Logger) *Conversation {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Conversation{ledger: l, sessions: sessions, logger: logger.WithComponent(log.ComponentBot)}
}

// Handle processes one update and returns the replies to send, in order.
func (c *Conversation) Handle(ctx context.Context, u Update) []Reply {
	switch u.Kind {
	case KindCommand:
		return c.command(ctx, u)
	case KindCallback:
		return c.callback(ctx, u)
	case KindText:
		return c.text(ctx, u)
	}
	return nil
}

func (c *Conversation) command(ctx context.Context, u Update) []Reply {
	switch strings.ToLower(u.Command) {
	case "start":
		return text(msgWelcome)
	case "help":
		return text(msgHelp)
	case "add":
		if err := c.sessions.Put(ctx, u.UserID, session.Session{Step: session.StepCurrency}); err != nil {
			return c.failure(ctx, u, "put session", err)
		}
		return []Reply{{Text: msgChooseCurrency, Keyboard: currencyKeyboard()}}
	case "init":
		s := session.Session{Step: session.StepAmount, Category: core.CategoryInit}
		if err := c.sessions.Put(ctx, u.UserID, s); err != nil {
			return c.failure(ctx, u, "put session", err)
		}
		return text(msgEnterInit)
	case "clear":
		if err := c.sessions.Delete(ctx, u.UserID); err != nil {
			return c.failure(ctx, u, "delete session", err)
		}
		return text(msgCleared)
	case "balance":
		cur, ok := optionalCurrency(u.Args)
		if !ok {
			return text(msgBadCurrency)
		}
		b, err := c.ledger.Balances(ctx, "", cur)
		if err != nil {
			return c.ledgerFailure(ctx, u, "balances", err)
		}
		return text(formatBalances(b))
	case "history":
		cur, ok := optionalCurrency(u.Args)
		if !ok {
			return text(msgBadCurrency)
		}
		page, err := c.ledger.History(ctx, "", cur, 0, ledger.DefaultPageSize)
		if err != nil {
			return c.ledgerFailure(ctx, u, "history", err)
		}
		return text(formatHistory(page))
	case "categories":
		cur, ok := optionalCurrency(u.Args)
		if !ok {
			return text(msgBadCurrency)
		}
		cats, err := c.ledger.Categories(ctx, "", cur)
		if err != nil {
			return c.ledgerFailure(ctx, u, "categories", err)
		}
		return text(formatCategories(cats))
	}
	return text(msgUnknownCommand)
}

func (c *Conversation) callback(ctx context.Context, u Update) []Reply {
	s, replies, ok := c.load(ctx, u)
	if !ok {
		return replies
	}
	switch {
	case strings.HasPrefix(u.Data, CallbackCurrency):
		cur, err := core.ParseCurrency(strings.TrimPrefix(u.Data, CallbackCurrency))
		if err != nil {
			return text(msgBadCurrency)
		}
		if s.IsInit() {
			return text(msgRestart)
		}
		s = session.Session{Step: session.StepCategory, Currency: cur}
		if err := c.sessions.Put(ctx, u.UserID, s); err != nil {
			return c.failure(ctx, u, "put session", err)
		}
		return []Reply{{Text: msgChooseCategory, Keyboard: categoryKeyboard(c.ledger.Registry())}}

	case strings.HasPrefix(u.Data, CallbackCategory):
		category := strings.TrimSpace(strings.TrimPrefix(u.Data, CallbackCategory))
		if s.IsInit() || s.Currency == "" || category == "" {
			return text(msgRestart)
		}
		s.Step, s.Category = session.StepAmount, category
		if err := c.sessions.Put(ctx, u.UserID, s); err != nil {
			return c.failure(ctx, u, "put session", err)
		}
		return text(msgEnterAmount)
	}
	return text(msgUnknownAction)
}

func (c *Conversation) text(ctx context.Context, u Update) []Reply {
	s, replies, ok := c.load(ctx, u)
	if !ok {
		return replies
	}
	if s.IsInit() {
		return c.seed(ctx, u)
	}
	if s.Step != session.StepAmount || s.Currency == "" || s.Category == "" {
		return text(msgRestart)
	}

	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return text(msgBadAmount)
	}
	amount, err := core.ParseAmount(fields[0])
	if err != nil {
		return text(msgBadAmount)
	}
	rcpt, err := c.ledger.Append(ctx, ledger.Input{
		Currency:    s.Currency,
		Category:    s.Category,
		Amount:      amount,
		Description: strings.Join(fields[1:], " "),
	})
	if err != nil {
		return c.ledgerFailure(ctx, u, "append", err)
	}
	c.finish(ctx, u)
	return text(formatReceipt(rcpt.Partition, rcpt.Description, rcpt.Signed, rcpt.Currency))
}

func (c *Conversation) seed(ctx context.Context, u Update) []Reply {
	balances, err := core.ParseBalances(u.Text)
	if err != nil {
		return text(msgBadInit)
	}
	label, written, err := c.ledger.Seed(ctx, balances)
	if err != nil {
		return c.ledgerFailure(ctx, u, "seed", err)
	}
	c.finish(ctx, u)
	if !written {
		return text(label + " is already initialized, balances unchanged.")
	}
	return text("Opening balances set for " + label + ".")
}

// load fetches the user's session. When it returns ok=false, replies says why.
func (c *Conversation) load(ctx context.Context, u Update) (session.Session, []Reply, bool) {
	s, err := c.sessions.Get(ctx, u.UserID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, text(msgNoSession), false
	}
	if err != nil {
		return session.Session{}, c.failure(ctx, u, "get session", err), false
	}
	return s, nil, true
}

// finish ends a completed session. A failed delete is only logged.
func (c *Conversation) finish(ctx context.Context, u Update) {
	if err := c.sessions.Delete(ctx, u.UserID); err != nil {
		c.logger.WarnContext(ctx, "Failed to delete session", log.FieldUserID, u.UserID, log.FieldError, err)
	}
}

func (c *Conversation) ledgerFailure(ctx context.Context, u Update, op string, err error) []Reply {
	if errors.Is(err, ledger.ErrInsufficientData) {
		c.logger.WarnContext(ctx, "Ledger partition not initialized", log.FieldOperation, op, log.FieldError, err)
		return text(msgNotInitialized)
	}
	return c.failure(ctx, u, op, err)
}

func (c *Conversation) failure(ctx context.Context, u Update, op string, err error) []Reply {
	c.logger.ErrorContext(ctx, "Bot operation failed",
		log.FieldOperation, op, log.FieldUserID, u.UserID, log.FieldChatID, u.ChatID, log.FieldError, err)
	return text(msgFailure)
}

// optionalCurrency parses an optional currency argument; empty means all.
func optionalCurrency(args string) (core.Currency, bool) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", true
	}
	cur, err := core.ParseCurrency(strings.Fields(args)[0])
	if err != nil {
		return "", false
	}
	return cur, true
}
