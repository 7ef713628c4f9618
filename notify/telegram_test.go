package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID string
	text   string
}

func fakeBotAPI(t *testing.T) (*httptest.Server, func() []sentMessage) {
	t.Helper()
	var (
		mu   sync.Mutex
		sent []sentMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Hub","username":"hub_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			mu.Lock()
			sent = append(sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
			mu.Unlock()
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []sentMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage(nil), sent...)
	}
}

func TestTelegramGateway_Notify(t *testing.T) {
	srv, sent := fakeBotAPI(t)

	g, err := NewTelegramGateway("test-token", srv.URL+"/bot%s/%s", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hub_bot", g.BotName())

	require.NoError(t, g.Notify(context.Background(), 42, "Registration approved"))
	assert.Equal(t, []sentMessage{{chatID: "42", text: "Registration approved"}}, sent())
}

func TestTelegramGateway_NoChat(t *testing.T) {
	srv, sent := fakeBotAPI(t)
	g, err := NewTelegramGateway("test-token", srv.URL+"/bot%s/%s", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, g.Notify(context.Background(), 0, "x"), ErrNoChat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Notify(ctx, 42, "x"), context.Canceled)
	assert.Empty(t, sent())
}

func TestTelegramGateway_NotifyHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Hub","username":"hub_bot"}}`)
			return
		}
		<-release
		io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	g, err := NewTelegramGateway("test-token", srv.URL+"/bot%s/%s", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = g.Notify(ctx, 42, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLogGateway(t *testing.T) {
	var buf strings.Builder
	g := NewLogGateway(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, g.Notify(context.Background(), 5, "hi"))
	assert.Contains(t, buf.String(), `"chat_id":5`)
	assert.ErrorIs(t, g.Notify(context.Background(), 0, "hi"), ErrNoChat)
}
