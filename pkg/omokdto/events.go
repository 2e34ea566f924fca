package omokdto

// Event is an outbound frame. Data is encoded as the frame's "data" member.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	EventRoomCreated        = "room-created"
	EventRoomJoined         = "room-joined"
	EventRoomLeft           = "room-left"
	EventRoomList           = "room-list"
	EventRoomPlayersUpdated = "room-players-updated"
	EventPlayerJoined       = "player-joined"
	EventPlayerLeft         = "player-left"
	EventColorSelected      = "color-selected"
	EventGameStarted        = "game-started"
	EventGameMove           = "game-move"
	EventGameOver           = "game-over"
	EventGameReset          = "game-reset"
	EventServerMessage      = "server-message"
)

// ServerMessage types.
const (
	MessageWelcome   = "welcome"
	MessageBroadcast = "broadcast"
	MessageRoom      = "room-message"
	MessageError     = "error"
)

type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// RoomInfo is the full view of a room sent to its members.
type RoomInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	OwnerID     string       `json:"ownerId"`
	MaxPlayers  int          `json:"maxPlayers"`
	Players     []PlayerInfo `json:"players"`
	Phase       string       `json:"phase"`
	BlackPlayer string       `json:"blackPlayer,omitempty"`
	WhitePlayer string       `json:"whitePlayer,omitempty"`
	Turn        string       `json:"turn,omitempty"`
	Board       [][]int      `json:"board"`
}

type RoomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Phase      string `json:"phase"`
}

type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RoomLeft struct {
	RoomID string `json:"roomId"`
}

type ColorSelected struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
}

type GameStarted struct {
	BlackPlayer string `json:"blackPlayer"`
	WhitePlayer string `json:"whitePlayer"`
}

type GameMove struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Player   string `json:"player"`
	Color    string `json:"color"`
	NextTurn string `json:"nextTurn,omitempty"`
}

type GameOver struct {
	Winner string `json:"winner,omitempty"`
	Color  string `json:"color,omitempty"`
	Draw   bool   `json:"draw"`
	Moves  int    `json:"moves"`
}

type GameReset struct {
	Reason string `json:"reason"`
}

// ServerMessage covers welcome, chat and error acknowledgements.
type ServerMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Sender     string `json:"sender,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	SentTime   string `json:"sentTime,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	// error acks only
	Code   string `json:"code,omitempty"`
	Intent string `json:"intent,omitempty"`

	// PlayerID tells a fresh connection who it is; welcome only.
	PlayerID string `json:"playerId,omitempty"`
}
