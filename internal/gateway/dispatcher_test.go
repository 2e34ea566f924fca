package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/park285/omok-server/internal/lobby"
	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/pkg/omokdto"
)

type staticNames map[string]string

func (n staticNames) Name(id string) string {
	if v, ok := n[id]; ok {
		return v
	}
	return id
}

type recordingSink struct {
	mu      sync.Mutex
	results []omokdto.GameResult
	puts    []omokdto.RoomSummary
	deletes []string
}

func (s *recordingSink) RecordResult(_ context.Context, r omokdto.GameResult) error {
	s.mu.Lock(); defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *recordingSink) PutRoom(_ context.Context, r omokdto.RoomSummary) error {
	s.mu.Lock(); defer s.mu.Unlock()
	s.puts = append(s.puts, r)
	return nil
}

func (s *recordingSink) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock(); defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	return nil
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil { t.Fatalf("msgcat.New: %v", err) }
	reg := lobby.NewRegistry(lobby.Options{DefaultCapacity: 2, MaxCapacity: 4})
	d := NewDispatcher(reg, staticNames{"A": "Alice", "B": "Bob"}, cat, Options{MaxRoomCapacity: 4, SinkTimeout: time.Second})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})
	return d
}

func intent(t *testing.T, typ string, payload any) omokdto.Intent {
	t.Helper()
	in := omokdto.Intent{Type: typ}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil { t.Fatalf("marshal: %v", err) }
		in.Data = b
	}
	return in
}

func mustOK(t *testing.T, res Result) Result {
	t.Helper()
	if res.Err != nil { t.Fatalf("unexpected error ack: %+v", *res.Err) }
	return res
}

func findEvent(res Result, player, typ string) (omokdto.Event, bool) {
	for _, d := range res.Deliveries {
		if d.Event.Type == typ && (d.All || contains(d.Targets, player)) {
			return d.Event, true
		}
	}
	return omokdto.Event{}, false
}

func createRoom(t *testing.T, d *Dispatcher, player string) string {
	t.Helper()
	res := mustOK(t, d.Dispatch(context.Background(), player, intent(t, omokdto.IntentCreateRoom, omokdto.CreateRoomRequest{Name: "duel"})))
	ev, ok := findEvent(res, player, omokdto.EventRoomCreated)
	if !ok { t.Fatalf("no room-created in %v", res.Events(player)) }
	return ev.Data.(omokdto.RoomInfo).ID
}

func join(t *testing.T, d *Dispatcher, player, roomID string) Result {
	t.Helper()
	return mustOK(t, d.Dispatch(context.Background(), player, intent(t, omokdto.IntentJoinRoom, omokdto.JoinRoomRequest{RoomID: roomID})))
}

func TestConnectSendsWelcomeAndLobby(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Connect("A")
	got := res.Events("A")
	if len(got) != 2 || got[0] != omokdto.EventServerMessage || got[1] != omokdto.EventRoomList { t.Fatalf("events: %v", got) }
	msg := res.Deliveries[0].Event.Data.(omokdto.ServerMessage)
	if msg.Type != omokdto.MessageWelcome || msg.Message == "" || msg.PlayerID != "A" { t.Fatalf("welcome: %+v", msg) }
}

func TestCreateAndJoinFanOut(t *testing.T) {
	d := newTestDispatcher(t)
	id := createRoom(t, d, "A")

	res := join(t, d, "B", id)
	if got := res.Events("B"); len(got) != 3 || got[0] != omokdto.EventRoomJoined { t.Fatalf("B events: %v", got) }
	if got := res.Events("A"); len(got) != 3 || got[0] != omokdto.EventPlayerJoined { t.Fatalf("A events: %v", got) }
	if got := res.Events("C"); len(got) != 1 || got[0] != omokdto.EventRoomList { t.Fatalf("bystander events: %v", got) }

	ev, _ := findEvent(res, "A", omokdto.EventPlayerJoined)
	if p := ev.Data.(omokdto.PlayerInfo); p.ID != "B" || p.Name != "Bob" { t.Fatalf("player-joined: %+v", p) }
	ev, _ = findEvent(res, "A", omokdto.EventRoomPlayersUpdated)
	if info := ev.Data.(omokdto.RoomInfo); len(info.Players) != 2 || info.Players[0].Name != "Alice" { t.Fatalf("players: %+v", info.Players) }

	again := join(t, d, "B", id)
	if got := again.Events("A"); len(got) != 0 { t.Fatalf("rejoin should not notify others: %v", got) }
}

func TestErrorAcks(t *testing.T) {
	d := newTestDispatcher(t)
	id := createRoom(t, d, "A")
	ctx := context.Background()

	cases := []struct {
		name   string
		player string
		in     omokdto.Intent
		code   string
	}{
		{"unknown room", "B", intent(t, omokdto.IntentJoinRoom, omokdto.JoinRoomRequest{RoomID: "NOPE00"}), omokdto.CodeRoomNotFound},
		{"missing room id", "B", intent(t, omokdto.IntentJoinRoom, nil), omokdto.CodeInvalidPayload},
		{"malformed json", "B", omokdto.Intent{Type: omokdto.IntentJoinRoom, Data: json.RawMessage(`{"roomId":`)}, omokdto.CodeInvalidPayload},
		{"unknown intent", "B", intent(t, "fly", nil), omokdto.CodeUnknownIntent},
		{"bad color", "A", intent(t, omokdto.IntentSelectColor, map[string]any{"roomId": id, "color": "red"}), omokdto.CodeInvalidColor},
		{"outsider color", "B", intent(t, omokdto.IntentSelectColor, map[string]any{"roomId": id, "color": "black"}), omokdto.CodeNotInRoom},
		{"move before start", "A", intent(t, omokdto.IntentGameMove, map[string]any{"roomId": id, "row": 1, "col": 1}), omokdto.CodeGameNotRunning},
		{"move without row", "A", intent(t, omokdto.IntentGameMove, map[string]any{"roomId": id, "col": 1}), omokdto.CodeInvalidPayload},
		{"capacity too large", "B", intent(t, omokdto.IntentCreateRoom, map[string]any{"maxPlayers": 9}), omokdto.CodeInvalidPayload},
		{"room chat outside room", "B", intent(t, omokdto.IntentRoomMessage, map[string]any{"message": "hi"}), omokdto.CodeRoomNotFound},
	}
	for _, tc := range cases {
		res := d.Dispatch(ctx, tc.player, tc.in)
		if res.Err == nil { t.Fatalf("%s: expected error ack", tc.name) }
		if res.Err.Code != tc.code { t.Fatalf("%s: code %q want %q", tc.name, res.Err.Code, tc.code) }
		if res.Err.Type != omokdto.MessageError || res.Err.Message == "" || res.Err.Intent != tc.in.Type { t.Fatalf("%s: ack %+v", tc.name, *res.Err) }
		if len(res.Deliveries) != 0 { t.Fatalf("%s: rejection must not fan out", tc.name) }
	}
}

func startGame(t *testing.T, d *Dispatcher) string {
	t.Helper()
	ctx := context.Background()
	id := createRoom(t, d, "A")
	join(t, d, "B", id)
	mustOK(t, d.Dispatch(ctx, "A", intent(t, omokdto.IntentSelectColor, map[string]any{"roomId": id, "color": "black"})))
	res := mustOK(t, d.Dispatch(ctx, "B", intent(t, omokdto.IntentSelectColor, map[string]any{"roomId": id, "color": "white"})))
	ev, ok := findEvent(res, "A", omokdto.EventGameStarted)
	if !ok { t.Fatalf("no game-started: %v", res.Events("A")) }
	if gs := ev.Data.(omokdto.GameStarted); gs.BlackPlayer != "A" || gs.WhitePlayer != "B" { t.Fatalf("game-started: %+v", gs) }
	return id
}

func move(t *testing.T, d *Dispatcher, player, id string, r, c int) Result {
	t.Helper()
	return d.Dispatch(context.Background(), player, intent(t, omokdto.IntentGameMove, map[string]any{"roomId": id, "row": r, "col": c}))
}

func TestGameToWinRecordsResult(t *testing.T) {
	d := newTestDispatcher(t)
	sink := &recordingSink{}
	d.AddResultSink(sink)
	d.SetLobbyMirror(sink)
	id := startGame(t, d)

	if res := move(t, d, "B", id, 7, 7); res.Err == nil || res.Err.Code != omokdto.CodeNotYourTurn { t.Fatalf("expected not_your_turn: %+v", res.Err) }

	seq := []struct {
		p    string
		r, c int
	}{
		{"A", 7, 7}, {"B", 7, 8}, {"A", 7, 6}, {"B", 0, 0}, {"A", 7, 5},
		{"B", 0, 1}, {"A", 7, 4}, {"B", 0, 2}, {"A", 7, 3},
	}
	var last Result
	for _, m := range seq {
		last = mustOK(t, move(t, d, m.p, id, m.r, m.c))
		if _, ok := findEvent(last, "B", omokdto.EventGameMove); !ok { t.Fatalf("game-move not delivered to B") }
	}
	ev, ok := findEvent(last, "B", omokdto.EventGameOver)
	if !ok { t.Fatalf("no game-over: %v", last.Events("B")) }
	if over := ev.Data.(omokdto.GameOver); over.Winner != "A" || over.Color != "black" || over.Draw || over.Moves != 9 { t.Fatalf("game-over: %+v", over) }

	if res := move(t, d, "A", id, 1, 1); res.Err == nil || res.Err.Code != omokdto.CodeGameNotRunning { t.Fatalf("match should have reset") }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil { t.Fatalf("Close: %v", err) }
	if len(sink.results) != 1 { t.Fatalf("results: %d", len(sink.results)) }
	r := sink.results[0]
	if r.WinnerID != "A" || r.BlackName != "Alice" || r.WhiteName != "Bob" || r.RoomID != id || r.Board[7][3] != 1 { t.Fatalf("result: %+v", r) }
	if len(sink.puts) == 0 { t.Fatalf("mirror saw no puts") }
}

func TestDisconnectMidGameResetsForOpponent(t *testing.T) {
	d := newTestDispatcher(t)
	id := startGame(t, d)
	mustOK(t, move(t, d, "A", id, 7, 7))

	res := d.Disconnect(context.Background(), "A")
	for _, want := range []string{omokdto.EventPlayerLeft, omokdto.EventGameReset, omokdto.EventRoomPlayersUpdated, omokdto.EventRoomList} {
		if _, ok := findEvent(res, "B", want); !ok { t.Fatalf("B missing %s: %v", want, res.Events("B")) }
	}
	ev, _ := findEvent(res, "B", omokdto.EventRoomPlayersUpdated)
	info := ev.Data.(omokdto.RoomInfo)
	if info.Phase != "WAITING_FOR_COLORS" || info.Board[7][7] != 0 || info.WhitePlayer != "B" { t.Fatalf("room after reset: %+v", info) }

	if got := d.Disconnect(context.Background(), "A"); len(got.Deliveries) != 0 { t.Fatalf("second disconnect should be a no-op") }
}

func TestLastLeaveDestroysRoomAndMirrorsDelete(t *testing.T) {
	d := newTestDispatcher(t)
	sink := &recordingSink{}
	d.SetLobbyMirror(sink)
	id := createRoom(t, d, "A")

	res := mustOK(t, d.Dispatch(context.Background(), "A", intent(t, omokdto.IntentLeaveRoom, nil)))
	ev, ok := findEvent(res, "A", omokdto.EventRoomList)
	if !ok || len(ev.Data.(omokdto.RoomList).Rooms) != 0 { t.Fatalf("lobby should be empty: %+v", ev) }

	again := mustOK(t, d.Dispatch(context.Background(), "A", intent(t, omokdto.IntentLeaveRoom, omokdto.LeaveRoomRequest{RoomID: id})))
	if got := again.Events("A"); len(got) != 1 || got[0] != omokdto.EventRoomLeft { t.Fatalf("idempotent leave: %v", got) }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = d.Close(ctx)
	if len(sink.deletes) != 1 || sink.deletes[0] != id { t.Fatalf("deletes: %v", sink.deletes) }
}

func TestChat(t *testing.T) {
	d := newTestDispatcher(t)
	id := createRoom(t, d, "A")
	join(t, d, "B", id)

	res := mustOK(t, d.Dispatch(context.Background(), "A", intent(t, omokdto.IntentRoomMessage, omokdto.ChatRequest{Message: "gg", SentTime: "12:00"})))
	ev, ok := findEvent(res, "B", omokdto.EventServerMessage)
	if !ok { t.Fatalf("room message not delivered") }
	if m := ev.Data.(omokdto.ServerMessage); m.Type != omokdto.MessageRoom || m.SenderName != "Alice" || m.Message != "gg" { t.Fatalf("room message: %+v", m) }
	if _, ok := findEvent(res, "C", omokdto.EventServerMessage); ok { t.Fatalf("room message leaked") }

	res = mustOK(t, d.Dispatch(context.Background(), "C", intent(t, omokdto.IntentClientMessage, omokdto.ChatRequest{Message: "hello"})))
	if len(res.Deliveries) != 1 || !res.Deliveries[0].All { t.Fatalf("broadcast: %+v", res.Deliveries) }
}
