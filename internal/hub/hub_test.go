package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/mohammad-safakhou/prizm/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func auth(t *testing.T, h *Hub, conn *websocket.Conn, userID int) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "auth", "userId": userID}))
	require.Eventually(t, func() bool { return h.Connected(userID) }, 2*time.Second, 5*time.Millisecond)
}

func TestDeliverPushesToRecipientOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := prometheus.NewRegistry()
	h := New(zap.NewNop(), WithMetrics(telemetry.NewMetrics(reg), "local"))
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	alice := dial(t, srv)
	defer alice.Close()
	bob := dial(t, srv)
	defer bob.Close()
	auth(t, h, alice, 1)
	auth(t, h, bob, 2)

	msg := models.Message{ID: 5, FromID: 2, ToID: 1, Content: "hello"}
	assert.Equal(t, 1, h.Deliver(context.Background(), msg))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alice.ReadMessage()
	require.NoError(t, err)
	var got models.Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 5, got.ID)
	assert.Equal(t, "hello", got.Content)

	assert.Equal(t, 0, h.Deliver(context.Background(), models.Message{ID: 6, ToID: 99}))
	n, err := testutil.GatherAndCount(reg, "prizm_messages_delivered_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUnauthenticatedSocketReceivesNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := New(zap.NewNop())
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "hello", "userId": 3}))

	assert.Never(t, func() bool { return h.Connected(3) }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 0, h.Deliver(context.Background(), models.Message{ToID: 3}))
}

func TestCloseUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := New(zap.NewNop())
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	auth(t, h, conn, 4)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !h.Connected(4) }, 2*time.Second, 5*time.Millisecond)
}

func TestPingKeepsConnectionAlive(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := New(zap.NewNop(), WithPingInterval(20*time.Millisecond))
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	conn := dial(t, srv)
	defer conn.Close()
	pings := make(chan struct{}, 4)
	conn.SetPingHandler(func(string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return nil
	})
	// the ping handler runs inside ReadMessage
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}
