package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/park285/omok-server/internal/lobby"
	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/internal/omok"
	"github.com/park285/omok-server/pkg/omokdto"
	"go.uber.org/zap"
)

// Names resolves a player id to its display name.
type Names interface {
	Name(playerID string) string
}

type Options struct {
	MaxRoomCapacity int
	SinkTimeout     time.Duration
	SinkQueue       int
}

// Dispatcher turns intents into registry calls and the events they cause. It
// never touches a socket; the Hub delivers what it returns.
type Dispatcher struct {
	reg      *lobby.Registry
	names    Names
	cat      *msgcat.Catalog
	validate *validator.Validate

	mu      sync.RWMutex
	mirror  LobbyMirror
	results []ResultSink
	sinks   *sinkWorker

	now func() time.Time
}

func NewDispatcher(reg *lobby.Registry, names Names, cat *msgcat.Catalog, opts Options) *Dispatcher {
	maxCap := opts.MaxRoomCapacity
	if maxCap < 2 {
		maxCap = 8
	}
	return &Dispatcher{
		reg:      reg,
		names:    names,
		cat:      cat,
		validate: newValidator(maxCap),
		sinks:    newSinkWorker(opts.SinkQueue, opts.SinkTimeout),
		now:      time.Now,
	}
}

func (d *Dispatcher) SetLobbyMirror(m LobbyMirror) {
	d.mu.Lock()
	d.mirror = m
	d.mu.Unlock()
}

func (d *Dispatcher) AddResultSink(s ResultSink) {
	if s == nil {
		return
	}
	d.mu.Lock()
	d.results = append(d.results, s)
	d.mu.Unlock()
}

// Close flushes pending sink work, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error { return d.sinks.close(ctx) }

// Connect greets a new session and hands it the lobby.
func (d *Dispatcher) Connect(player string) Result {
	var res Result
	name := d.names.Name(player)
	res.to([]string{player}, omokdto.EventServerMessage, omokdto.ServerMessage{
		Type:      omokdto.MessageWelcome,
		Message:   d.cat.Text("welcome", map[string]any{"Name": name}, "Welcome, "+name),
		Sender:    "server",
		Timestamp: d.timestamp(),
		PlayerID:  player,
	})
	res.to([]string{player}, omokdto.EventRoomList, d.roomList())
	return res
}

// Disconnect removes player from its room, if any.
func (d *Dispatcher) Disconnect(_ context.Context, player string) Result {
	var res Result
	lr, ok := d.reg.Leave(player)
	if !ok {
		return res
	}
	d.addLeave(&res, lr)
	res.all(omokdto.EventRoomList, d.roomList())
	d.mirrorRooms(lr.RoomID)
	return res
}

// Reject builds an error acknowledgement without dispatching.
func (d *Dispatcher) Reject(intent, code string) Result {
	return Result{Err: d.ack(intent, code)}
}

// Dispatch applies one intent from player.
func (d *Dispatcher) Dispatch(ctx context.Context, player string, in omokdto.Intent) Result {
	if ctx.Err() != nil {
		return Result{}
	}
	var (
		res Result
		err error
	)
	switch in.Type {
	case omokdto.IntentCreateRoom:
		res, err = d.createRoom(player, in)
	case omokdto.IntentJoinRoom:
		res, err = d.joinRoom(player, in)
	case omokdto.IntentLeaveRoom:
		res, err = d.leaveRoom(player, in)
	case omokdto.IntentSelectColor:
		res, err = d.selectColor(player, in)
	case omokdto.IntentGameMove:
		res, err = d.gameMove(player, in)
	case omokdto.IntentListRooms:
		res.to([]string{player}, omokdto.EventRoomList, d.roomList())
	case omokdto.IntentClientMessage:
		res, err = d.chat(player, in, false)
	case omokdto.IntentRoomMessage:
		res, err = d.chat(player, in, true)
	default:
		obslog.L().Debug("intent_unknown", zap.String("player_id", player), zap.String("type", in.Type))
		return d.Reject(in.Type, omokdto.CodeUnknownIntent)
	}
	if err != nil {
		return d.fail(player, in.Type, err)
	}
	return res
}

func (d *Dispatcher) createRoom(player string, in omokdto.Intent) (Result, error) {
	var req omokdto.CreateRoomRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	cr, err := d.reg.CreateRoom(player, req.Name, req.MaxPlayers)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if cr.Previous != nil {
		d.addLeave(&res, *cr.Previous)
		d.mirrorRooms(cr.Previous.RoomID)
	}
	res.to([]string{player}, omokdto.EventRoomCreated, d.roomInfo(cr.Room))
	res.all(omokdto.EventRoomList, d.roomList())
	d.mirrorRooms(cr.Room.ID)
	return res, nil
}

func (d *Dispatcher) joinRoom(player string, in omokdto.Intent) (Result, error) {
	var req omokdto.JoinRoomRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	jr, err := d.reg.JoinRoom(player, req.RoomID)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if jr.AlreadyMember {
		res.to([]string{player}, omokdto.EventRoomJoined, d.roomInfo(jr.Room))
		return res, nil
	}
	if jr.Previous != nil {
		d.addLeave(&res, *jr.Previous)
		d.mirrorRooms(jr.Previous.RoomID)
	}
	info := d.roomInfo(jr.Room)
	res.to([]string{player}, omokdto.EventRoomJoined, info)
	res.to(without(jr.Room.Members, player), omokdto.EventPlayerJoined, omokdto.PlayerInfo{ID: player, Name: d.names.Name(player)})
	res.to(jr.Room.Members, omokdto.EventRoomPlayersUpdated, info)
	res.all(omokdto.EventRoomList, d.roomList())
	d.mirrorRooms(jr.Room.ID)
	return res, nil
}

func (d *Dispatcher) leaveRoom(player string, in omokdto.Intent) (Result, error) {
	var req omokdto.LeaveRoomRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	roomID := req.RoomID
	if strings.TrimSpace(roomID) == "" {
		roomID, _ = d.reg.RoomOf(player)
	}
	var res Result
	lr, ok := d.reg.LeaveRoom(player, roomID)
	if !ok {
		// already out; acknowledge anyway
		res.to([]string{player}, omokdto.EventRoomLeft, omokdto.RoomLeft{RoomID: strings.ToUpper(strings.TrimSpace(roomID))})
		return res, nil
	}
	d.addLeave(&res, lr)
	res.all(omokdto.EventRoomList, d.roomList())
	d.mirrorRooms(lr.RoomID)
	return res, nil
}

// addLeave appends the events a departure causes.
func (d *Dispatcher) addLeave(res *Result, lr lobby.LeaveResult) {
	res.to([]string{lr.PlayerID}, omokdto.EventRoomLeft, omokdto.RoomLeft{RoomID: lr.RoomID})
	if lr.Destroyed {
		return
	}
	others := lr.Room.Members
	res.to(others, omokdto.EventPlayerLeft, omokdto.PlayerInfo{ID: lr.PlayerID, Name: d.names.Name(lr.PlayerID)})
	if lr.MatchReset {
		res.to(others, omokdto.EventGameReset, omokdto.GameReset{Reason: "player-left"})
	}
	res.to(others, omokdto.EventRoomPlayersUpdated, d.roomInfo(lr.Room))
}

func (d *Dispatcher) selectColor(player string, in omokdto.Intent) (Result, error) {
	var req omokdto.SelectColorRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	color, err := omok.ParseColor(req.Color)
	if err != nil {
		return Result{}, err
	}
	ca, view, err := d.reg.SelectColor(player, req.RoomID, color)
	if err != nil {
		return Result{}, err
	}
	var res Result
	sel := omokdto.ColorSelected{PlayerID: player, Color: color.String()}
	if !ca.Changed {
		res.to([]string{player}, omokdto.EventColorSelected, sel)
		return res, nil
	}
	res.to(view.Members, omokdto.EventColorSelected, sel)
	res.to(view.Members, omokdto.EventRoomPlayersUpdated, d.roomInfo(view))
	if ca.Started {
		res.to(view.Members, omokdto.EventGameStarted, omokdto.GameStarted{BlackPlayer: ca.BlackID, WhitePlayer: ca.WhiteID})
		res.all(omokdto.EventRoomList, d.roomList())
		d.mirrorRooms(view.ID)
	}
	return res, nil
}

func (d *Dispatcher) gameMove(player string, in omokdto.Intent) (Result, error) {
	var req omokdto.GameMoveRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	out, members, err := d.reg.PlayMove(player, req.RoomID, *req.Row, *req.Col)
	if err != nil {
		return Result{}, err
	}
	var res Result
	res.to(members, omokdto.EventGameMove, omokdto.GameMove{
		Row:      out.Row,
		Col:      out.Col,
		Player:   out.Player,
		Color:    out.Color.String(),
		NextTurn: out.NextTurn,
	})
	if !out.Over() {
		return res, nil
	}

	over := omokdto.GameOver{Draw: out.Kind == omok.OutcomeDraw, Moves: out.Moves}
	if out.Kind == omok.OutcomeWin {
		over.Winner = out.Winner
		over.Color = out.Color.String()
	}
	res.to(members, omokdto.EventGameOver, over)

	view, ok := d.reg.Room(req.RoomID)
	if ok {
		res.to(members, omokdto.EventRoomPlayersUpdated, d.roomInfo(view))
		d.mirrorRooms(view.ID)
	} else {
		view.ID = strings.ToUpper(strings.TrimSpace(req.RoomID))
	}
	res.all(omokdto.EventRoomList, d.roomList())
	d.recordResult(view, out)
	return res, nil
}

func (d *Dispatcher) chat(player string, in omokdto.Intent, room bool) (Result, error) {
	var req omokdto.ChatRequest
	if err := d.decode(in, &req); err != nil {
		return Result{}, err
	}
	msg := omokdto.ServerMessage{
		Type:       omokdto.MessageBroadcast,
		Message:    req.Message,
		Sender:     player,
		SenderName: d.names.Name(player),
		SentTime:   req.SentTime,
		Timestamp:  d.timestamp(),
	}
	var res Result
	if !room {
		res.all(omokdto.EventServerMessage, msg)
		return res, nil
	}
	roomID := req.RoomID
	if strings.TrimSpace(roomID) == "" {
		roomID, _ = d.reg.RoomOf(player)
	}
	view, ok := d.reg.Room(roomID)
	if !ok {
		return Result{}, lobby.ErrRoomNotFound
	}
	if !contains(view.Members, player) {
		return Result{}, lobby.ErrNotInRoom
	}
	msg.Type = omokdto.MessageRoom
	res.to(view.Members, omokdto.EventServerMessage, msg)
	return res, nil
}

func (d *Dispatcher) recordResult(view lobby.RoomView, out omok.MoveOutcome) {
	d.mu.RLock()
	sinks := append([]ResultSink(nil), d.results...)
	d.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	gr := omokdto.GameResult{
		ID:         uuid.NewString(),
		RoomID:     view.ID,
		RoomName:   view.Name,
		BlackID:    out.BlackID,
		BlackName:  d.names.Name(out.BlackID),
		WhiteID:    out.WhiteID,
		WhiteName:  d.names.Name(out.WhiteID),
		WinnerID:   out.Winner,
		Draw:       out.Kind == omok.OutcomeDraw,
		Moves:      out.Moves,
		LastRow:    out.Row,
		LastCol:    out.Col,
		StartedAt:  out.StartedAt,
		FinishedAt: out.FinishedAt,
		Board:      boardRows(out.FinalBoard),
	}
	if out.Kind == omok.OutcomeWin {
		gr.WinnerColor = out.Color.String()
	}
	for _, s := range sinks {
		s := s
		d.sinks.submit("result", func(ctx context.Context) error { return s.RecordResult(ctx, gr) })
	}
}

// mirrorRooms pushes the current state of each room to the lobby mirror.
func (d *Dispatcher) mirrorRooms(ids ...string) {
	d.mu.RLock()
	m := d.mirror
	d.mu.RUnlock()
	if m == nil {
		return
	}
	for _, id := range ids {
		id := id
		if v, ok := d.reg.Room(id); ok {
			s := summary(v.Summary())
			d.sinks.submit("lobby_put", func(ctx context.Context) error { return m.PutRoom(ctx, s) })
		} else {
			d.sinks.submit("lobby_delete", func(ctx context.Context) error { return m.DeleteRoom(ctx, id) })
		}
	}
}

func (d *Dispatcher) fail(player, intent string, err error) Result {
	code := errorCode(err)
	if code == omokdto.CodeInternal {
		obslog.L().Error("intent_failed", zap.String("player_id", player), zap.String("type", intent), zap.Error(err))
	} else {
		obslog.L().Debug("intent_rejected", zap.String("player_id", player), zap.String("type", intent), zap.String("code", code), zap.Error(err))
	}
	return Result{Err: d.ack(intent, code)}
}

func (d *Dispatcher) ack(intent, code string) *omokdto.ServerMessage {
	return &omokdto.ServerMessage{
		Type:      omokdto.MessageError,
		Code:      code,
		Intent:    intent,
		Message:   d.cat.Text("errors."+code, map[string]any{"Intent": intent}, strings.ReplaceAll(code, "_", " ")),
		Timestamp: d.timestamp(),
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{lobby.ErrRoomNotFound, omokdto.CodeRoomNotFound},
	{lobby.ErrRoomFull, omokdto.CodeRoomFull},
	{lobby.ErrNotInRoom, omokdto.CodeNotInRoom},
	{lobby.ErrInvalidArgs, omokdto.CodeInvalidPayload},
	{omok.ErrColorTaken, omokdto.CodeColorTaken},
	{omok.ErrAlreadyAssigned, omokdto.CodeAlreadyAssigned},
	{omok.ErrNotYourTurn, omokdto.CodeNotYourTurn},
	{omok.ErrGameNotRunning, omokdto.CodeGameNotRunning},
	{omok.ErrCellOccupied, omokdto.CodeCellOccupied},
	{omok.ErrOutOfBounds, omokdto.CodeOutOfBounds},
	{omok.ErrInvalidColor, omokdto.CodeInvalidColor},
	{omok.ErrInvalidPlayer, omokdto.CodeInvalidPayload},
	{errInvalidColor, omokdto.CodeInvalidColor},
	{errInvalidPayload, omokdto.CodeInvalidPayload},
}

func errorCode(err error) string {
	var de omokdto.DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return omokdto.CodeInternal
}
