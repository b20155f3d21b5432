package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PulseChat/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenIsUser struct{}

func (tokenIsUser) Authenticate(_ context.Context, token string) (string, error) {
	return token, nil
}

type fixedMembers map[string][]string

func (m fixedMembers) Members(_ context.Context, conversationID string) ([]string, error) {
	return m[conversationID], nil
}

func startWS(t *testing.T, members fixedMembers) (*chat.Server, string, func()) {
	t.Helper()
	reg := chat.NewRegistry()
	fanout := chat.NewFanout(reg, 2, 16, time.Second)
	s := chat.NewServer(chat.Config{}, reg, chat.NewPresence(), fanout, tokenIsUser{}, members)
	s.Register(NewTypingStartHandler())
	s.Register(NewTypingStopHandler())

	engine := gin.New()
	engine.GET("/ws", s.HandleWS)
	srv := httptest.NewServer(engine)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return s, url, func() {
		srv.Close()
		fanout.Close()
	}
}

func dialAs(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	auth, _ := json.Marshal(map[string]any{
		"kind": "auth",
		"body": map[string]any{"token": userID},
	})
	if err := ws.WriteMessage(websocket.TextMessage, auth); err != nil {
		t.Fatalf("auth %s: %v", userID, err)
	}
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn, timeout time.Duration) (*chat.Event, error) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(timeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return chat.ParseEvent(raw)
}

func waitRegistered(t *testing.T, s *chat.Server, users ...string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		all := true
		for _, u := range users {
			if _, ok := s.Registry().Get(u); !ok {
				all = false
				break
			}
		}
		if all {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("connections did not register in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// U1 starts typing in a three-member conversation: U2 and U3 get the
// indicator, U1 never sees its own.
func TestTypingStartReachesOtherMembersOnly(t *testing.T) {
	s, url, stop := startWS(t, fixedMembers{"trip": {"u1", "u2", "u3"}})
	defer stop()

	u1 := dialAs(t, url, "u1")
	defer u1.Close()
	u2 := dialAs(t, url, "u2")
	defer u2.Close()
	u3 := dialAs(t, url, "u3")
	defer u3.Close()
	waitRegistered(t, s, "u1", "u2", "u3")

	frame, _ := json.Marshal(map[string]any{
		"kind":            "typing-start",
		"conversation_id": "trip",
	})
	if err := u1.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("send typing-start: %v", err)
	}

	for _, ws := range []*websocket.Conn{u2, u3} {
		ev, err := readEvent(t, ws, time.Second)
		if err != nil {
			t.Fatalf("recipient got no frame: %v", err)
		}
		if ev.Kind != chat.KindTypingStart || ev.ConversationID != "trip" || ev.SenderID != "u1" {
			t.Fatalf("got %+v, want typing-start from u1 in trip", ev)
		}
	}

	if ev, err := readEvent(t, u1, 200*time.Millisecond); err == nil {
		t.Fatalf("sender received its own indicator: %+v", ev)
	}
}

func TestTypingStopExcludesSenderToo(t *testing.T) {
	s, url, stop := startWS(t, fixedMembers{"trip": {"u1", "u2"}})
	defer stop()

	u1 := dialAs(t, url, "u1")
	defer u1.Close()
	u2 := dialAs(t, url, "u2")
	defer u2.Close()
	waitRegistered(t, s, "u1", "u2")

	frame, _ := json.Marshal(map[string]any{
		"kind":            "typing-stop",
		"conversation_id": "trip",
	})
	if err := u1.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("send typing-stop: %v", err)
	}

	ev, err := readEvent(t, u2, time.Second)
	if err != nil {
		t.Fatalf("recipient got no frame: %v", err)
	}
	if ev.Kind != chat.KindTypingStop || ev.SenderID != "u1" {
		t.Fatalf("got %+v, want typing-stop from u1", ev)
	}

	if ev, err := readEvent(t, u1, 200*time.Millisecond); err == nil {
		t.Fatalf("sender received its own indicator: %+v", ev)
	}
}
