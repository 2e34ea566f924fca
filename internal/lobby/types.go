package lobby

import (
	"time"

	"github.com/park285/omok-server/internal/omok"
)

// RoomSummary is the lobby listing entry for a room.
type RoomSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Players   int        `json:"players"`
	Capacity  int        `json:"maxPlayers"`
	Phase     omok.Phase `json:"phase"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RoomView is a consistent copy of a room and its match.
type RoomView struct {
	ID        string
	Name      string
	OwnerID   string
	Capacity  int
	Members   []string // join order
	CreatedAt time.Time
	Match     omok.MatchState
}

// Summary reduces the view to its lobby entry.
func (v RoomView) Summary() RoomSummary {
	return RoomSummary{
		ID:        v.ID,
		Name:      v.Name,
		Players:   len(v.Members),
		Capacity:  v.Capacity,
		Phase:     v.Match.Phase,
		CreatedAt: v.CreatedAt,
	}
}

// LeaveResult describes a membership removal.
type LeaveResult struct {
	RoomID   string
	PlayerID string
	// Destroyed is true when the player was the last member.
	Destroyed bool
	// MatchReset is true when a running game was abandoned.
	MatchReset bool
	// Room is the state after the leave; zero when Destroyed.
	Room RoomView
}

// JoinResult describes a successful join.
type JoinResult struct {
	Room          RoomView
	AlreadyMember bool
	// Previous is set when the player was migrated out of another room.
	Previous *LeaveResult
}

// CreateResult describes a newly created room.
type CreateResult struct {
	Room     RoomView
	Previous *LeaveResult
}

// Options configure a Registry.
type Options struct {
	DefaultCapacity int
	MaxCapacity     int
}

const (
	minCapacity     = 2
	defaultCapacity = 2
	maxNameRunes    = 32
	idAttempts      = 16
)

var (
	ErrRoomNotFound = errf("room not found")
	ErrRoomFull     = errf("room is full")
	ErrNotInRoom    = errf("player is not a member of this room")
	ErrInvalidArgs  = errf("invalid arguments")
	ErrIDExhausted  = errf("failed to allocate room id")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error        { return staticErr(s) }
