package api

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

	"seedpull/internal/controller"
)

func readWSMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestServeWS_StreamsSnapshots(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)

	updates := make(chan controller.Snapshot, 1)
	unsubscribed := make(chan struct{})
	mockController.EXPECT().
		Subscribe().
		Return((<-chan controller.Snapshot)(updates), func() { close(unsubscribed) }).
		Once()
	mockController.EXPECT().Snapshot().Return(controller.Snapshot{State: "starting"}).Once()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(runDone)
	}()

	server := httptest.NewServer(h.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readWSMessage(t, conn)
	assert.Equal(t, "snapshot", initial.Type)
	assert.Equal(t, "starting", initial.Data.(map[string]interface{})["state"])

	require.Eventually(t, func() bool { return h.hub.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	updates <- controller.Snapshot{State: "ready", SessionID: "abc"}

	update := readWSMessage(t, conn)
	assert.Equal(t, "snapshot", update.Type)
	assert.Equal(t, "ready", update.Data.(map[string]interface{})["state"])

	cancel()
	<-runDone
	<-unsubscribed

	// hub shutdown closes the connection
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWSHub_BroadcastWithoutClients(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	h.hub.Broadcast("snapshot", controller.Snapshot{})

	assert.Len(t, h.hub.broadcast, 0)
	h.hub.Close()
	h.hub.Close()
}
