package gateway

import (
	"github.com/park285/omok-server/internal/lobby"
	"github.com/park285/omok-server/internal/omok"
	"github.com/park285/omok-server/pkg/omokdto"
)

// Delivery is one event and who receives it.
type Delivery struct {
	Targets []string
	All     bool
	Event   omokdto.Event
}

// Result is everything a single intent produced. Err is the error
// acknowledgement for the originator; when set, Deliveries is empty.
type Result struct {
	Deliveries []Delivery
	Err        *omokdto.ServerMessage
}

func (r *Result) to(targets []string, typ string, data any) {
	if len(targets) == 0 {
		return
	}
	r.Deliveries = append(r.Deliveries, Delivery{Targets: targets, Event: omokdto.Event{Type: typ, Data: data}})
}

func (r *Result) all(typ string, data any) {
	r.Deliveries = append(r.Deliveries, Delivery{All: true, Event: omokdto.Event{Type: typ, Data: data}})
}

// Events returns the event types addressed to player, in order.
func (r Result) Events(player string) []string {
	var out []string
	for _, d := range r.Deliveries {
		if d.All || contains(d.Targets, player) {
			out = append(out, d.Event.Type)
		}
	}
	return out
}

func errorEvent(m omokdto.ServerMessage) omokdto.Event {
	return omokdto.Event{Type: omokdto.EventServerMessage, Data: m}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func colorName(c omok.Color) string {
	if c == omok.Empty {
		return ""
	}
	return c.String()
}

func boardRows(b [omok.BoardSize][omok.BoardSize]omok.Cell) [][]int {
	rows := make([][]int, omok.BoardSize)
	for r := range b {
		rows[r] = make([]int, omok.BoardSize)
		for c := range b[r] {
			rows[r][c] = int(b[r][c])
		}
	}
	return rows
}

func (d *Dispatcher) roomInfo(v lobby.RoomView) omokdto.RoomInfo {
	info := omokdto.RoomInfo{
		ID:          v.ID,
		Name:        v.Name,
		OwnerID:     v.OwnerID,
		MaxPlayers:  v.Capacity,
		Phase:       string(v.Match.Phase),
		BlackPlayer: v.Match.BlackID,
		WhitePlayer: v.Match.WhiteID,
		Turn:        v.Match.TurnOwner,
		Board:       boardRows(v.Match.Board),
		Players:     make([]omokdto.PlayerInfo, 0, len(v.Members)),
	}
	for _, id := range v.Members {
		info.Players = append(info.Players, omokdto.PlayerInfo{
			ID:    id,
			Name:  d.names.Name(id),
			Color: colorName(v.Match.ColorOf(id)),
		})
	}
	return info
}

func summary(s lobby.RoomSummary) omokdto.RoomSummary {
	return omokdto.RoomSummary{ID: s.ID, Name: s.Name, Players: s.Players, MaxPlayers: s.Capacity, Phase: string(s.Phase)}
}

func (d *Dispatcher) roomList() omokdto.RoomList {
	rooms := d.reg.ListRooms()
	out := omokdto.RoomList{Rooms: make([]omokdto.RoomSummary, 0, len(rooms))}
	for _, s := range rooms {
		out.Rooms = append(out.Rooms, summary(s))
	}
	return out
}

func (d *Dispatcher) timestamp() int64 { return d.now().UnixMilli() }
