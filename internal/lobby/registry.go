package lobby

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/internal/omok"
	"go.uber.org/zap"
)

type room struct {
	id        string
	name      string
	owner     string
	capacity  int
	members   []string
	createdAt time.Time
	match     *omok.Match
}

func (r *room) view() RoomView {
	return RoomView{
		ID:        r.id,
		Name:      r.name,
		OwnerID:   r.owner,
		Capacity:  r.capacity,
		Members:   append([]string(nil), r.members...),
		CreatedAt: r.createdAt,
		Match:     r.match.Snapshot(),
	}
}

func (r *room) indexOf(player string) int {
	for i, p := range r.members {
		if p == player {
			return i
		}
	}
	return -1
}

// Registry owns every room and the player→room index. Membership changes take
// the write lock; match operations run under the read lock plus the match's
// own mutex, so rooms never contend with each other on game traffic.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	byPlayer map[string]string

	defaultCap int
	maxCap     int

	newID func() (string, error)
	now   func() time.Time
}

func NewRegistry(opts Options) *Registry {
	maxCap := opts.MaxCapacity
	if maxCap < minCapacity {
		maxCap = 8
	}
	def := opts.DefaultCapacity
	if def < minCapacity {
		def = defaultCapacity
	}
	if def > maxCap {
		def = maxCap
	}
	return &Registry{
		rooms:      make(map[string]*room),
		byPlayer:   make(map[string]string),
		defaultCap: def,
		maxCap:     maxCap,
		newID:      roomIDGen,
		now:        time.Now,
	}
}

// CreateRoom allocates a room owned by owner, who becomes its only member.
// An owner already sitting in another room leaves it first.
func (r *Registry) CreateRoom(owner, name string, capacity int) (*CreateResult, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidArgs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for i := 0; i < idAttempts; i++ {
		c, err := r.newID()
		if err != nil {
			return nil, fmt.Errorf("room id: %w", err)
		}
		if _, exists := r.rooms[c]; !exists {
			id = c
			break
		}
	}
	if id == "" {
		return nil, ErrIDExhausted
	}

	res := &CreateResult{}
	if prev, ok := r.byPlayer[owner]; ok {
		if lr, left := r.leaveLocked(owner, prev); left {
			res.Previous = &lr
		}
	}

	rm := &room{
		id:        id,
		name:      r.roomName(name, id),
		owner:     owner,
		capacity:  r.clampCapacity(capacity),
		members:   []string{owner},
		createdAt: r.now(),
		match:     omok.NewMatch(),
	}
	r.rooms[id] = rm
	r.byPlayer[owner] = id
	res.Room = rm.view()

	obslog.L().Info("room_create",
		zap.String("room_id", id),
		zap.String("name", rm.name),
		zap.String("owner_id", owner),
		zap.Int("capacity", rm.capacity),
	)
	return res, nil
}

// JoinRoom adds player to roomID. Joining a room the player already occupies
// is a no-op; a player in a different room is migrated out of it first.
func (r *Registry) JoinRoom(player, roomID string) (*JoinResult, error) {
	player = strings.TrimSpace(player)
	roomID = normalizeID(roomID)
	if player == "" || roomID == "" {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if rm.indexOf(player) >= 0 {
		return &JoinResult{Room: rm.view(), AlreadyMember: true}, nil
	}
	if len(rm.members) >= rm.capacity {
		obslog.L().Info("room_join_rejected", zap.String("room_id", roomID), zap.String("player_id", player), zap.String("reason", "full"))
		return nil, ErrRoomFull
	}

	res := &JoinResult{}
	if prev, ok := r.byPlayer[player]; ok && prev != roomID {
		if lr, left := r.leaveLocked(player, prev); left {
			res.Previous = &lr
		}
	}

	rm.members = append(rm.members, player)
	r.byPlayer[player] = roomID
	res.Room = rm.view()

	obslog.L().Info("room_join", zap.String("room_id", roomID), zap.String("player_id", player), zap.Int("players", len(rm.members)))
	return res, nil
}

// LeaveRoom removes player from roomID. It reports false when the player was
// not a member, which is not an error.
func (r *Registry) LeaveRoom(player, roomID string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(strings.TrimSpace(player), normalizeID(roomID))
}

// Leave removes player from whatever room it occupies.
func (r *Registry) Leave(player string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.byPlayer[player]
	if !ok {
		return LeaveResult{}, false
	}
	return r.leaveLocked(player, roomID)
}

func (r *Registry) leaveLocked(player, roomID string) (LeaveResult, bool) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{}, false
	}
	idx := rm.indexOf(player)
	if idx < 0 {
		return LeaveResult{}, false
	}

	rm.members = append(rm.members[:idx], rm.members[idx+1:]...)
	if r.byPlayer[player] == roomID {
		delete(r.byPlayer, player)
	}
	res := LeaveResult{RoomID: roomID, PlayerID: player}
	res.MatchReset = rm.match.RemovePlayer(player)

	if len(rm.members) == 0 {
		delete(r.rooms, roomID)
		res.Destroyed = true
		obslog.L().Info("room_destroy", zap.String("room_id", roomID), zap.String("last_player_id", player))
		return res, true
	}
	if rm.owner == player {
		rm.owner = rm.members[0]
	}
	res.Room = rm.view()
	obslog.L().Info("room_leave",
		zap.String("room_id", roomID),
		zap.String("player_id", player),
		zap.Int("players", len(rm.members)),
		zap.Bool("match_reset", res.MatchReset),
	)
	return res, true
}

// SelectColor claims color for player in roomID's match.
func (r *Registry) SelectColor(player, roomID string, color omok.Color) (omok.ColorAssignment, RoomView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, err := r.memberRoom(player, roomID)
	if err != nil {
		return omok.ColorAssignment{}, RoomView{}, err
	}
	res, err := rm.match.AssignColor(player, color)
	if err != nil {
		return omok.ColorAssignment{}, RoomView{}, err
	}
	if res.Changed {
		obslog.L().Info("color_select", zap.String("room_id", rm.id), zap.String("player_id", player), zap.String("color", color.String()), zap.Bool("started", res.Started))
	}
	return res, rm.view(), nil
}

// PlayMove submits a move for player in roomID's match. It returns the
// members to notify along with the outcome.
func (r *Registry) PlayMove(player, roomID string, row, col int) (omok.MoveOutcome, []string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, err := r.memberRoom(player, roomID)
	if err != nil {
		return omok.MoveOutcome{}, nil, err
	}
	out, err := rm.match.SubmitMove(player, row, col)
	if err != nil {
		return omok.MoveOutcome{}, nil, err
	}
	if out.Over() {
		obslog.L().Info("game_over",
			zap.String("room_id", rm.id),
			zap.String("kind", string(out.Kind)),
			zap.String("winner", out.Winner),
			zap.Int("moves", out.Moves),
		)
	}
	return out, append([]string(nil), rm.members...), nil
}

func (r *Registry) memberRoom(player, roomID string) (*room, error) {
	rm, ok := r.rooms[normalizeID(roomID)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if player == "" || rm.indexOf(player) < 0 {
		return nil, ErrNotInRoom
	}
	return rm, nil
}

// ListRooms returns every room ordered by creation time, then id.
func (r *Registry) ListRooms() []RoomSummary {
	r.mu.RLock()
	out := make([]RoomSummary, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, RoomSummary{
			ID:        rm.id,
			Name:      rm.name,
			Players:   len(rm.members),
			Capacity:  rm.capacity,
			Phase:     rm.match.Phase(),
			CreatedAt: rm.createdAt,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Room returns a copy of roomID.
func (r *Registry) Room(roomID string) (RoomView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[normalizeID(roomID)]
	if !ok {
		return RoomView{}, false
	}
	return rm.view(), true
}

// RoomOf returns the id of the room player occupies.
func (r *Registry) RoomOf(player string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[player]
	return id, ok
}

// Members returns the members of roomID in join order.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[normalizeID(roomID)]
	if !ok {
		return nil
	}
	return append([]string(nil), rm.members...)
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) clampCapacity(n int) int {
	if n <= 0 {
		return r.defaultCap
	}
	if n < minCapacity {
		return minCapacity
	}
	if n > r.maxCap {
		return r.maxCap
	}
	return n
}

func (r *Registry) roomName(name, id string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Room " + id
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}

func normalizeID(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

// roomIDGen returns 6 upper alnum characters.
func roomIDGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}
