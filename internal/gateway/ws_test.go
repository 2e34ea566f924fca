package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/omok-server/internal/lobby"
	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/pkg/omokdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil { t.Fatalf("msgcat.New: %v", err) }
	hub := NewHub()
	reg := lobby.NewRegistry(lobby.Options{DefaultCapacity: 2, MaxCapacity: 8})
	disp := NewDispatcher(reg, hub, cat, Options{MaxRoomCapacity: 8})
	srv := httptest.NewServer(NewHandler(hub, disp, cat, HandlerOptions{SendBuffer: 64, IntentRate: 100, IntentBurst: 100}))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil { t.Fatalf("dial: %v", err) }
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, c *websocket.Conn, typ string) omokdto.Intent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var ev omokdto.Intent
		if err := wsjson.Read(ctx, c, &ev); err != nil { t.Fatalf("waiting for %s: %v", typ, err) }
		if ev.Type == typ { return ev }
	}
}

func send(t *testing.T, c *websocket.Conn, typ string, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c, map[string]any{"type": typ, "data": data}); err != nil { t.Fatalf("write %s: %v", typ, err) }
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv, "")
	readUntil(t, a, omokdto.EventRoomList)

	send(t, a, omokdto.IntentCreateRoom, map[string]any{"name": "ws"})
	ev := readUntil(t, a, omokdto.EventRoomCreated)
	var info omokdto.RoomInfo
	if err := jsonUnmarshal(ev.Data, &info); err != nil || info.ID == "" { t.Fatalf("room-created: %s %v", ev.Data, err) }

	b := dial(t, srv, "?roomId="+strings.ToLower(info.ID))
	readUntil(t, b, omokdto.EventRoomJoined)
	readUntil(t, a, omokdto.EventPlayerJoined)

	send(t, b, "bogus", nil)
	ack := readUntil(t, b, omokdto.EventServerMessage)
	var msg omokdto.ServerMessage
	if err := jsonUnmarshal(ack.Data, &msg); err != nil || msg.Code != omokdto.CodeUnknownIntent { t.Fatalf("ack: %s", ack.Data) }

	_ = b.Close(websocket.StatusNormalClosure, "bye")
	left := readUntil(t, a, omokdto.EventPlayerLeft)
	var p omokdto.PlayerInfo
	if err := jsonUnmarshal(left.Data, &p); err != nil || p.ID == "" { t.Fatalf("player-left: %s", left.Data) }
}

func TestWebSocketMalformedFrame(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv, "")
	readUntil(t, a, omokdto.EventRoomList)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil { t.Fatalf("write: %v", err) }
	ev := readUntil(t, a, omokdto.EventServerMessage)
	var msg omokdto.ServerMessage
	if err := jsonUnmarshal(ev.Data, &msg); err != nil || msg.Code != omokdto.CodeInvalidPayload { t.Fatalf("ack: %s", ev.Data) }
}
