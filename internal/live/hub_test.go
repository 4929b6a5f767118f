package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, h *Hub, topic string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, r.URL.Query().Get("topic"))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.Subscribers(topic) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestPublishReachesTopicOnly(t *testing.T) {
	h := NewHub(nil)
	mine := dial(t, h, "2")
	other := dial(t, h, "3")

	h.Publish("2", Message{Action: "attendance", Data: map[string]string{"fullname": "Ahmad"}})

	var got Message
	_ = mine.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, mine.ReadJSON(&got))
	assert.Equal(t, "attendance", got.Action)
	assert.Equal(t, map[string]any{"fullname": "Ahmad"}, got.Data)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other topic receives nothing")
}

func TestDisconnectUnregisters(t *testing.T) {
	h := NewHub(nil)
	conn := dial(t, h, "9")
	require.Equal(t, 1, h.Subscribers("9"))

	conn.Close()
	assert.Eventually(t, func() bool { return h.Subscribers("9") == 0 }, time.Second, 10*time.Millisecond)

	h.Publish("9", Message{Action: "noop"})
}

func TestCloseTopic(t *testing.T) {
	h := NewHub(nil)
	conn := dial(t, h, "5")

	h.Close("5")
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return h.Subscribers("5") == 0 }, time.Second, 10*time.Millisecond)
}
