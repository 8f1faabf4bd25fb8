package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scoring_engine/internal/models"

	"github.com/bytedance/sonic"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSink struct {
	name string
	err  error
	got  []models.Signal
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(_ context.Context, s models.Signal) error {
	f.got = append(f.got, s)
	return f.err
}

func signal() models.Signal {
	return models.Signal{
		Symbol:    "AAPL",
		Score:     82,
		Previous:  70,
		Threshold: 75,
		RunID:     "run-1",
		Reason:    "score crossed threshold",
		CreatedAt: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestFanout_PublishesToAllSinks(t *testing.T) {
	ok := &fakeSink{name: "ok"}
	bad := &fakeSink{name: "bad", err: errors.New("down")}
	last := &fakeSink{name: "last"}
	f := NewFanout(zap.NewNop(), ok, bad, nil, last)

	assert.Equal(t, []string{"ok", "bad", "last"}, f.Sinks())

	err := f.Publish(context.Background(), signal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, last.got, 1)
}

func TestFanout_NoSinks(t *testing.T) {
	assert.NoError(t, NewFanout(zap.NewNop()).Publish(context.Background(), signal()))
}

func TestFormat(t *testing.T) {
	msg := Format(signal())
	assert.True(t, strings.HasPrefix(msg, "▲ AAPL score 82 (was 70)"))
	assert.Contains(t, msg, "threshold 75")

	down := signal()
	down.Score, down.Previous = 60, 90
	assert.True(t, strings.HasPrefix(Format(down), "▼"))

	assert.Equal(t, "No scores yet", FormatRankings(nil, 10))
	ranks := []models.Ranking{{Rank: 1, Symbol: "A", Value: 90}, {Rank: 2, Symbol: "B", Value: 80}}
	assert.Equal(t, "Top scores:\n1. A 90", FormatRankings(ranks, 1))
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), signal()))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.Signal
	require.NoError(t, sonic.Unmarshal(msg, &got))
	assert.Equal(t, signal(), got)
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// fakeTelegram answers getMe and records sendMessage calls.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"scoring","username":"scoring_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, r.FormValue("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"not found"}`))
	}
}

func (f *fakeTelegram) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestTelegram(t *testing.T, chatID int64) (*Telegram, *fakeTelegram) {
	t.Helper()
	api := &fakeTelegram{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	bot, err := tgbot.NewBotAPIWithClient("token", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	return newTelegram(bot, chatID, zap.NewNop()), api
}

func TestTelegram_PublishSendsFormattedSignal(t *testing.T) {
	tg, api := newTestTelegram(t, 42)

	require.NoError(t, tg.Publish(context.Background(), signal()))
	require.Len(t, api.messages(), 1)
	assert.Equal(t, Format(signal()), api.messages()[0])
}

func TestTelegram_NoChatIsNoop(t *testing.T) {
	tg, api := newTestTelegram(t, 0)
	require.NoError(t, tg.Publish(context.Background(), signal()))
	assert.Empty(t, api.messages())

	var nilTelegram *Telegram
	assert.NoError(t, nilTelegram.Send("x"))
}

func command(chatID int64, text string) tgbot.Update {
	return tgbot.Update{Message: &tgbot.Message{
		Text:     text,
		Chat:     &tgbot.Chat{ID: chatID},
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestTelegram_TopCommand(t *testing.T) {
	tg, api := newTestTelegram(t, 42)
	tg.SetRankings(func(context.Context) ([]models.Ranking, error) {
		return []models.Ranking{{Rank: 1, Symbol: "MSFT", Value: 91}}, nil
	})

	tg.handle(context.Background(), command(7, "/top"))
	assert.Empty(t, api.messages())

	tg.handle(context.Background(), command(42, "/top"))
	require.Len(t, api.messages(), 1)
	assert.Equal(t, "Top scores:\n1. MSFT 91", api.messages()[0])
}
