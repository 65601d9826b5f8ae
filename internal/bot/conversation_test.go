package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/core"
	"finsheet/internal/layout"
	"finsheet/internal/ledger"
	"finsheet/internal/log"
	"finsheet/internal/session"
	"finsheet/internal/sheets/memory"
)

const user = int64(7)

var march5 = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

type fixture struct {
	conv     *Conversation
	svc      *ledger.Service
	sessions *session.Memory
	store    *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	svc := ledger.NewService(store, layout.Default(),
		ledger.WithClock(func() time.Time { return march5 }),
		ledger.WithLogger(log.Discard()))
	sessions := session.NewMemory()
	return &fixture{conv: New(svc, sessions, log.Discard()), svc: svc, sessions: sessions, store: store}
}

func (f *fixture) send(t *testing.T, u Update) Reply {
	t.Helper()
	u.UserID, u.ChatID = user, 100
	replies := f.conv.Handle(context.Background(), u)
	require.Len(t, replies, 1)
	return replies[0]
}

func cmd(name string, args ...string) Update {
	return Update{Kind: KindCommand, Command: name, Args: strings.Join(args, " ")}
}

func press(data string) Update { return Update{Kind: KindCallback, Data: data} }

func say(s string) Update { return Update{Kind: KindText, Text: s} }

func (f *fixture) session(t *testing.T) (session.Session, bool) {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), user)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, false
	}
	require.NoError(t, err)
	return s, true
}

func TestAddFlowRecordsTransaction(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Seed(context.Background(), core.Balances{})
	require.NoError(t, err)

	r := f.send(t, cmd("add"))
	assert.Equal(t, msgChooseCurrency, r.Text)
	require.Len(t, r.Keyboard, 1)
	assert.Equal(t, "currency:eur", r.Keyboard[0][1].Data)

	r = f.send(t, press("currency:eur"))
	assert.Equal(t, msgChooseCategory, r.Text)
	assert.Equal(t, "category:food", r.Keyboard[0][0].Data)
	s, _ := f.session(t)
	assert.Equal(t, session.Session{Step: session.StepCategory, Currency: core.EUR}, s)

	r = f.send(t, press("category:food"))
	assert.Equal(t, msgEnterAmount, r.Text)

	r = f.send(t, say("42"))
	assert.Equal(t, "Recorded 💸 € food: -42.00 EUR (March 2024)", r.Text)
	_, ok := f.session(t)
	assert.False(t, ok, "session is removed after a successful append")

	bal, err := f.svc.Balances(context.Background(), "", core.EUR)
	require.NoError(t, err)
	assert.Equal(t, "-42", bal[core.EUR].Balance.String())
}

func TestAmountWithDescriptionAndComma(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Seed(context.Background(), core.Balances{})
	require.NoError(t, err)

	f.send(t, cmd("add"))
	f.send(t, press("currency:usd"))
	f.send(t, press("category:salary"))
	r := f.send(t, say("1000,50 March pay"))
	assert.Equal(t, "Recorded 💵 $ March pay: 1000.50 USD (March 2024)", r.Text)

	page, err := f.svc.History(context.Background(), "", core.USD, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "salary", page.Transactions[0].Category)
	assert.True(t, page.Transactions[0].Amounts[core.USD].Equal(decimal.RequireFromString("1000.5")))
}

func TestBadAmountKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.send(t, cmd("add"))
	f.send(t, press("currency:rub"))
	f.send(t, press("category:food"))
	before, _ := f.session(t)

	for _, bad := range []string{"abc", "-5", "0", "   "} {
		r := f.send(t, say(bad))
		assert.Equal(t, msgBadAmount, r.Text, bad)
		after, ok := f.session(t)
		require.True(t, ok)
		assert.Equal(t, before, after)
	}
}

func TestNoSession(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, msgNoSession, f.send(t, say("42")).Text)
	assert.Equal(t, msgNoSession, f.send(t, press("currency:usd")).Text)
	assert.Equal(t, msgNoSession, f.send(t, press("category:food")).Text)
}

func TestIncompleteSessionAsksToRestart(t *testing.T) {
	f := newFixture(t)
	f.send(t, cmd("add"))
	assert.Equal(t, msgRestart, f.send(t, press("category:food")).Text, "category before currency")
	assert.Equal(t, msgRestart, f.send(t, say("10")).Text, "amount before category")

	s, ok := f.session(t)
	require.True(t, ok)
	assert.Equal(t, session.StepCurrency, s.Step)
}

func TestAddResetsExistingSession(t *testing.T) {
	f := newFixture(t)
	f.send(t, cmd("add"))
	f.send(t, press("currency:usd"))
	f.send(t, press("category:food"))
	f.send(t, cmd("add"))
	s, _ := f.session(t)
	assert.Equal(t, session.Session{Step: session.StepCurrency}, s)
}

func TestClearFromAnyState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, msgCleared, f.send(t, cmd("clear")).Text)

	f.send(t, cmd("init"))
	assert.Equal(t, msgCleared, f.send(t, cmd("clear")).Text)
	_, ok := f.session(t)
	assert.False(t, ok)
}

func TestInitFlow(t *testing.T) {
	f := newFixture(t)
	r := f.send(t, cmd("init"))
	assert.Equal(t, msgEnterInit, r.Text)
	s, _ := f.session(t)
	assert.True(t, s.IsInit())

	assert.Equal(t, msgBadInit, f.send(t, say("100 50")).Text)
	_, ok := f.session(t)
	assert.True(t, ok, "malformed triple keeps the session")

	assert.Equal(t, msgRestart, f.send(t, press("currency:usd")).Text)

	r = f.send(t, say("100 50,5 0"))
	assert.Equal(t, "Opening balances set for March 2024.", r.Text)
	_, ok = f.session(t)
	assert.False(t, ok)

	bal, err := f.svc.Balances(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "100", bal[core.USD].Balance.String())
	assert.Equal(t, "50.5", bal[core.EUR].Balance.String())

	f.send(t, cmd("init"))
	r = f.send(t, say("999 999 999"))
	assert.Equal(t, "March 2024 is already initialized, balances unchanged.", r.Text)
	_, ok = f.session(t)
	assert.False(t, ok)
	bal, err = f.svc.Balances(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "100", bal[core.USD].Balance.String())
}

func TestReadCommands(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Seed(context.Background(), core.Balances{USD: decimal.NewFromInt(10)})
	require.NoError(t, err)

	assert.Equal(t, msgNoTransactions, f.send(t, cmd("history")).Text)

	f.send(t, cmd("add"))
	f.send(t, press("currency:usd"))
	f.send(t, press("category:transport"))
	f.send(t, say("2,5 bus"))

	r := f.send(t, cmd("balance", "usd"))
	assert.Equal(t, "Balances:\nUSD: 7.50 (expenses -2.50, income 0.00)", r.Text)

	r = f.send(t, cmd("history"))
	assert.Contains(t, r.Text, "Last 1 of 1 transactions:")
	assert.Contains(t, r.Text, "💸 $ bus  -2.50 USD")

	r = f.send(t, cmd("categories", "USD"))
	assert.Contains(t, r.Text, "transport: -2.50 USD")
	assert.NotContains(t, r.Text, "all:")

	assert.Equal(t, msgBadCurrency, f.send(t, cmd("balance", "gbp")).Text)
	assert.Equal(t, msgUnknownCommand, f.send(t, cmd("frobnicate")).Text)
	assert.Equal(t, msgNoSession, f.send(t, press("nope")).Text)
	f.send(t, cmd("add"))
	assert.Equal(t, msgUnknownAction, f.send(t, press("nope")).Text)
}

func TestUninitializedLedger(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreatePartition(context.Background(), "March 2024"))

	assert.Equal(t, msgNotInitialized, f.send(t, cmd("balance")).Text)

	f.send(t, cmd("add"))
	f.send(t, press("currency:usd"))
	f.send(t, press("category:food"))
	assert.Equal(t, msgNotInitialized, f.send(t, say("5")).Text)
	_, ok := f.session(t)
	assert.True(t, ok)
}

// brokenLedger fails every call.
type brokenLedger struct{ Ledger }

var errRemote = errors.New("remote unavailable")

func (brokenLedger) Append(context.Context, ledger.Input) (ledger.Receipt, error) {
	return ledger.Receipt{}, errRemote
}

func (brokenLedger) Seed(context.Context, core.Balances) (string, bool, error) {
	return "", false, errRemote
}

func (brokenLedger) Balances(context.Context, string, core.Currency) (map[core.Currency]core.CurrencyBalance, error) {
	return nil, errRemote
}

func (brokenLedger) Registry() *layout.Registry { return layout.Default() }

func TestRemoteFailureKeepsSession(t *testing.T) {
	sessions := session.NewMemory()
	conv := New(brokenLedger{}, sessions, log.Discard())
	ctx := context.Background()
	handle := func(u Update) string {
		u.UserID = user
		return conv.Handle(ctx, u)[0].Text
	}

	handle(cmd("add"))
	handle(press("currency:usd"))
	handle(press("category:food"))
	assert.Equal(t, msgFailure, handle(say("5 lunch")))
	s, err := sessions.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, session.Session{Step: session.StepAmount, Currency: core.USD, Category: "food"}, s)

	handle(cmd("init"))
	assert.Equal(t, msgFailure, handle(say("1 2 3")))
	s, err = sessions.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, s.IsInit())

	assert.Equal(t, msgFailure, handle(cmd("balance")))
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	f := newFixture(t)
	f.send(t, cmd("add"))
	replies := f.conv.Handle(context.Background(), Update{Kind: KindText, UserID: user + 1, Text: "5"})
	require.Len(t, replies, 1)
	assert.Equal(t, msgNoSession, replies[0].Text)
}

func TestCategoryKeyboardLayout(t *testing.T) {
	rows := categoryKeyboard(layout.Default())
	// 9 spend categories in 3 rows, 5 income ones in 2 rows.
	require.Len(t, rows, 5)
	assert.Len(t, rows[3], 3)
	assert.Len(t, rows[4], 2)
	assert.Equal(t, "💵 salary", rows[3][0].Text)
	assert.Equal(t, "category:salary", rows[3][0].Data)
}
