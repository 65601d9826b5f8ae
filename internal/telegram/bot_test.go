package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/bot"
	"finsheet/internal/log"
)

const allowedChat = int64(1001)

type fakeAPI struct {
	mu       sync.Mutex
	pending  []update
	offsets  []string
	sent     []sendMessageRequest
	answered []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		f.offsets = append(f.offsets, r.URL.Query().Get("offset"))
		batch := f.pending
		f.pending = nil
		if len(batch) == 0 {
			f.mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			f.mu.Lock()
		}
		_ = json.NewEncoder(w).Encode(updatesResponse{OK: true, Result: batch})
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.sent = append(f.sent, req)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	case strings.HasSuffix(r.URL.Path, "/answerCallbackQuery"):
		var req answerCallbackRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.answered = append(f.answered, req.CallbackQueryID)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "Not Found"})
	}
}

func (f *fakeAPI) messages() []sendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendMessageRequest(nil), f.sent...)
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []bot.Update
}

func (h *recordingHandler) Handle(_ context.Context, u bot.Update) []bot.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return []bot.Reply{{
		Text:     "ok",
		Keyboard: [][]bot.Button{{{Text: "USD", Data: "currency:usd"}}},
	}}
}

func (h *recordingHandler) seen() []bot.Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bot.Update(nil), h.updates...)
}

func newTestBot(t *testing.T, api *fakeAPI, h Handler) *Bot {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	b := NewBot(Config{
		BaseURL:       srv.URL,
		Token:         "test-token",
		AllowedChatID: allowedChat,
		PollTimeout:   time.Second,
	}, h, log.Discard())
	b.retryDelay = 10 * time.Millisecond
	return b
}

func textUpdate(id int, chatID, userID int64, text string) update {
	return update{UpdateID: id, Message: &message{
		MessageID: id,
		From:      &user{ID: userID},
		Chat:      chat{ID: chatID},
		Text:      text,
	}}
}

func TestRunDispatchesAndAdvancesOffset(t *testing.T) {
	api := &fakeAPI{pending: []update{
		textUpdate(7, allowedChat, 42, "/add@finsheet_bot"),
		textUpdate(8, allowedChat, 42, "12,50 coffee"),
	}}
	h := &recordingHandler{}
	b := newTestBot(t, api, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := h.seen()
	require.Len(t, got, 2)
	assert.Equal(t, bot.KindCommand, got[0].Kind)
	assert.Equal(t, "add", got[0].Command)
	assert.Equal(t, int64(42), got[0].UserID)
	assert.Equal(t, bot.KindText, got[1].Kind)
	assert.Equal(t, "12,50 coffee", got[1].Text)

	sent := api.messages()
	assert.Equal(t, allowedChat, sent[0].ChatID)
	require.NotNil(t, sent[0].ReplyMarkup)
	assert.Equal(t, "currency:usd", sent[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "0", api.offsets[0])
	assert.Contains(t, api.offsets, "9")
}

func TestUnauthorizedChatIsDenied(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	b := newTestBot(t, api, h)

	b.dispatch(context.Background(), textUpdate(1, 555, 555, "/balance"))

	assert.Empty(t, h.seen())
	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(555), sent[0].ChatID)
	assert.Equal(t, msgAccessDenied, sent[0].Text)
	assert.Nil(t, sent[0].ReplyMarkup)
}

func TestCallbackIsAnsweredAndForwarded(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	b := newTestBot(t, api, h)

	b.dispatch(context.Background(), update{UpdateID: 3, CallbackQuery: &callbackQuery{
		ID:      "cb-1",
		From:    user{ID: 42},
		Message: &message{Chat: chat{ID: allowedChat}},
		Data:    "category:food",
	}})

	got := h.seen()
	require.Len(t, got, 1)
	assert.Equal(t, bot.KindCallback, got[0].Kind)
	assert.Equal(t, "category:food", got[0].Data)
	assert.Equal(t, int64(42), got[0].UserID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"cb-1"}, api.answered)
}

func TestCallbackFromOtherChatIsDenied(t *testing.T) {
	api := &fakeAPI{}
	h := &recordingHandler{}
	b := newTestBot(t, api, h)

	b.dispatch(context.Background(), update{UpdateID: 4, CallbackQuery: &callbackQuery{
		ID:      "cb-2",
		From:    user{ID: 9},
		Message: &message{Chat: chat{ID: 9}},
		Data:    "currency:eur",
	}})

	assert.Empty(t, h.seen())
	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, msgAccessDenied, sent[0].Text)
}

func TestToUpdate(t *testing.T) {
	u, ok := toUpdate(&message{Chat: chat{ID: 1}, From: &user{ID: 2}, Text: "/history eur"})
	require.True(t, ok)
	assert.Equal(t, "history", u.Command)
	assert.Equal(t, "eur", u.Args)

	u, ok = toUpdate(&message{Chat: chat{ID: 1}, Text: "hello"})
	require.True(t, ok)
	assert.Equal(t, bot.KindText, u.Kind)
	assert.Equal(t, int64(1), u.UserID)

	_, ok = toUpdate(&message{Chat: chat{ID: 1}, Text: "   "})
	assert.False(t, ok)
}

func TestSendMessageReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "Forbidden: bot was blocked"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	err := c.SendMessage(context.Background(), 1, "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}
