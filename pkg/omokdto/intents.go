package omokdto

import "encoding/json"

// Intent is an inbound frame: {"type": "...", "data": {...}}.
type Intent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	IntentCreateRoom    = "create-room"
	IntentJoinRoom      = "join-room"
	IntentLeaveRoom     = "leave-room"
	IntentSelectColor   = "select-color"
	IntentGameMove      = "game-move"
	IntentListRooms     = "list-rooms"
	IntentClientMessage = "client-message"
	IntentRoomMessage   = "room-message"
)

type CreateRoomRequest struct {
	Name       string `json:"name" validate:"max=32"`
	MaxPlayers int    `json:"maxPlayers" validate:"roomcap"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required,max=16"`
}

// LeaveRoomRequest leaves the player's current room when RoomID is empty.
type LeaveRoomRequest struct {
	RoomID string `json:"roomId" validate:"max=16"`
}

type SelectColorRequest struct {
	RoomID string `json:"roomId" validate:"required,max=16"`
	Color  string `json:"color" validate:"required,oneof=black white"`
}

// GameMoveRequest carries raw coordinates; bounds are checked by the board.
type GameMoveRequest struct {
	RoomID string `json:"roomId" validate:"required,max=16"`
	Row    *int   `json:"row" validate:"required"`
	Col    *int   `json:"col" validate:"required"`
}

type ChatRequest struct {
	RoomID   string `json:"roomId,omitempty" validate:"max=16"`
	Message  string `json:"message" validate:"required,max=500"`
	SentTime string `json:"sentTime,omitempty"`
}
