package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastStatus(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.BroadcastStatus(FrameStatus{
		FrameIndex:     42,
		Detections:     3,
		CollisionPairs: 1,
		Status:         "ACCIDENT_CONFIRMED",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got FrameStatus
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 42, got.FrameIndex)
	assert.Equal(t, 3, got.Detections)
	assert.Equal(t, 1, got.CollisionPairs)
	assert.Equal(t, "ACCIDENT_CONFIRMED", got.Status)
	assert.NotZero(t, got.Timestamp)
}

func TestHubClientLifecycle(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	var mu sync.Mutex
	var counts []int
	hub.OnClientChange = func(count int) {
		mu.Lock()
		counts = append(counts, count)
		mu.Unlock()
	}

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, counts, 1)
	assert.Contains(t, counts, 0)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	t.Parallel()
	// Broadcasting into an empty hub must not block or panic.
	NewHub().BroadcastStatus(FrameStatus{FrameIndex: 1, Status: "MONITORING"})
}

func TestHubCloseAll(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.CloseAll()
	assert.Zero(t, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
