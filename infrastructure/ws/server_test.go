package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"linguachat/domain"
	"linguachat/mocks"
	"linguachat/runtime"
	"linguachat/runtime/workers"
	"linguachat/services"
)

// liveServer wires a real registry, broadcaster and chat service behind the
// websocket transport; only the relay and the repositories are mocked.
func liveServer(t *testing.T, ctrl *gomock.Controller) (*httptest.Server, *mocks.MockIRelay) {
	t.Helper()
	log := slog.Default()

	relay := mocks.NewMockIRelay(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)

	registry := runtime.NewRegistry()
	presence := runtime.NewBroadcaster(log, registry, nil, time.Second)
	chat := services.NewChatService(log, registry, presence, relay, messages, users)
	sup := workers.NewSupervisor(log, 100*time.Millisecond)

	server := NewServer(log, chat, relay, sup, 16, time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", server.Handle)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, relay
}

func dial(t *testing.T, ts *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readPresence(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, EventOnlineUsers, env.Event)
	var online []string
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	return online
}

func TestHandle_RequiresUserID(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _ := liveServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/ws")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_PresenceOnConnect(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, _ := liveServer(t, ctrl)

	// Alice connects and immediately sees herself online
	alice := dial(t, ts, "alice")
	req.Equal([]string{"alice"}, readPresence(t, alice))

	// Bob joins: both see the full set, newcomer included
	bob := dial(t, ts, "bob")
	req.Equal([]string{"alice", "bob"}, readPresence(t, bob))
	req.Equal([]string{"alice", "bob"}, readPresence(t, alice))
}

func TestHandle_SendMessageReachesRelay(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, relay := liveServer(t, ctrl)

	relayed := make(chan domain.SendMessageCommand, 1)
	relay.EXPECT().
		Relay(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
			relayed <- cmd
			return domain.Message{}, nil
		}).
		Times(1)

	alice := dial(t, ts, "alice")
	readPresence(t, alice)

	// The sender identity is implied by the connection when absent
	err := alice.WriteJSON(Envelope{
		Event:   EventSendMessage,
		Payload: json.RawMessage(`{"receiverId":"bob","text":"hello"}`),
	})
	req.NoError(err)

	select {
	case cmd := <-relayed:
		req.Equal("alice", cmd.SenderID)
		req.Equal("bob", cmd.ReceiverID)
		req.Equal("hello", cmd.Text)
	case <-time.After(2 * time.Second):
		req.Fail("Relay should have received the command")
	}
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ts, relay := liveServer(t, ctrl)

	relayed := make(chan domain.SendMessageCommand, 1)
	relay.EXPECT().
		Relay(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
			relayed <- cmd
			return domain.Message{}, nil
		}).
		Times(1)

	alice := dial(t, ts, "alice")
	readPresence(t, alice)

	req.NoError(alice.WriteJSON(Envelope{
		Event:   "typingIndicator",
		Payload: json.RawMessage(`{}`),
	}))

	// The connection stays alive after the unknown event
	req.NoError(alice.WriteJSON(Envelope{
		Event:   EventSendMessage,
		Payload: json.RawMessage(`{"receiverId":"bob","text":"still here"}`),
	}))

	select {
	case <-relayed:
	case <-time.After(2 * time.Second):
		req.Fail("sendMessage after unknown event should still relay")
	}
}
