package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	server := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewMessage(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	dets := []postprocess.Detection{
		{Box: images.Rect{X: 1, Y: 2, Width: 3, Height: 4}, Score: 0.5, Class: 2},
	}

	msg := NewMessage(9, ts, dets, func(int) string { return "car" })

	assert.Equal(t, Message{
		Frame:     9,
		Timestamp: ts,
		Detections: []Detection{
			{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.5, ClassID: 2, Label: "car"},
		},
	}, msg)
}

func TestNewMessage_JSONShape(t *testing.T) {
	msg := NewMessage(1, time.Unix(0, 0).UTC(), nil, nil)

	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"frame":1,"timestamp":"1970-01-01T00:00:00Z","detections":[]}`, string(payload))
}

func TestHub_BroadcastsToViewers(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	dets := []postprocess.Detection{
		{Box: images.Rect{X: 10, Y: 20, Width: 30, Height: 40}, Score: 0.9, Class: 0},
	}
	require.NoError(t, hub.Publish(context.Background(), NewMessage(3, time.Now(), dets, func(int) string { return "person" })))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, 3, got.Frame)
		require.Len(t, got.Detections, 1)
		assert.Equal(t, "person", got.Detections[0].Label)
		assert.Equal(t, float32(30), got.Detections[0].Width)
	}
}

func TestHub_Unregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_PublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Fill the buffer, then expect the closed error.
	var err error
	for i := 0; i <= sendBuffer && err == nil; i++ {
		err = hub.Broadcast(context.Background(), []byte("x"))
	}
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_PublishHonoursContext(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, hub.Broadcast(context.Background(), []byte("x")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.Broadcast(ctx, []byte("x")), context.Canceled)
}
