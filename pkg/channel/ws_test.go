package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Accepts one connection, answers the subscribe message with the given
// pushes and then closes normally.
func newQueueServer(t *testing.T, pushes ...string) (string, <-chan msg.TrackQueueRequest) {
	t.Helper()
	subscribed := make(chan msg.TrackQueueRequest, 1)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed %v", err)
			return
		}
		defer conn.Close()

		var req msg.TrackQueueRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe failed %v", err)
			return
		}
		subscribed <- req

		for _, push := range pushes {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(push)); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.ReadMessage()
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), subscribed
}

func TestDialSubscribeAndRead(t *testing.T) {
	url, subscribed := newQueueServer(t, `{"queue_id":"Q-42","room_number":"101"}`, `{"queue_id":"Q-42","remaining_queue":2}`)
	dialer := NewWsDialer(url, 50*time.Millisecond, zap.NewNop().Sugar())

	conn, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(msg.NewTrackQueueRequest("Q-42")))
	select {
	case req := <-subscribed:
		assert.Equal(t, msg.TrackQueueAction, req.Action)
		assert.Equal(t, msg.QueueId("Q-42"), req.QueueId)
	case <-time.After(time.Second):
		t.Fatal("no subscribe received")
	}

	first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"queue_id":"Q-42","room_number":"101"}`, string(first))

	second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"queue_id":"Q-42","remaining_queue":2}`, string(second))

	_, err = conn.ReadMessage()
	assert.ErrorIs(t, err, tracking.ErrChannelClosed)
}

func TestDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	dialer := NewWsDialer("ws"+strings.TrimPrefix(server.URL, "http"), 0, zap.NewNop().Sugar())

	_, err := dialer.Dial(context.Background())
	assert.Error(t, err)
}

func TestCloseUnblocksRead(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	dialer := NewWsDialer("ws"+strings.TrimPrefix(server.URL, "http"), 0, zap.NewNop().Sugar())
	conn, err := dialer.Dial(context.Background())
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		readErr <- err
	}()

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	select {
	case err := <-readErr:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("read not unblocked by close")
	}
}
