package directory

import (
    "context"
    "encoding/json"
    "fmt"
    "net/url"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/park285/omok-server/internal/obslog"
    "github.com/park285/omok-server/pkg/omokdto"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

const (
    defaultTTL    = 6 * time.Hour
    lobbyChannel  = "omok:lobby:events"
)

// Event is published on every lobby change.
type Event struct {
    Op     string               `json:"op"` // put | delete
    RoomID string               `json:"roomId"`
    Room   *omokdto.RoomSummary `json:"room,omitempty"`
    At     int64                `json:"at"`
}

// Store mirrors the in-memory lobby into Redis so other processes can list
// rooms without talking to the game server.
type Store struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb, ttl: defaultTTL} }

// Open connects to redisURL and verifies the connection.
func Open(ctx context.Context, redisURL string) (*Store, error) {
    opts, err := parseRedisURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := rdb.Ping(pctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewStore(rdb), nil
}

func (s *Store) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

func (s *Store) keyRoom(id string) string { return "omok:room:" + strings.TrimSpace(id) }
func (s *Store) keyLobby() string         { return "omok:lobby" }

// PutRoom stores the room summary and indexes it in the lobby set.
func (s *Store) PutRoom(ctx context.Context, room omokdto.RoomSummary) error {
    if strings.TrimSpace(room.ID) == "" { return nil }
    raw, err := json.Marshal(room)
    if err != nil { return err }
    ev, err := json.Marshal(Event{Op: "put", RoomID: room.ID, Room: &room, At: time.Now().UnixMilli()})
    if err != nil { return err }

    pipe := s.rdb.TxPipeline()
    pipe.Set(ctx, s.keyRoom(room.ID), raw, s.ttl)
    pipe.SAdd(ctx, s.keyLobby(), room.ID)
    pipe.Expire(ctx, s.keyLobby(), s.ttl)
    pipe.Publish(ctx, lobbyChannel, ev)
    if _, err := pipe.Exec(ctx); err != nil {
        return fmt.Errorf("put room %s: %w", room.ID, err)
    }
    return nil
}

// DeleteRoom removes the room and its lobby entry.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
    if strings.TrimSpace(roomID) == "" { return nil }
    ev, err := json.Marshal(Event{Op: "delete", RoomID: roomID, At: time.Now().UnixMilli()})
    if err != nil { return err }

    pipe := s.rdb.TxPipeline()
    pipe.Del(ctx, s.keyRoom(roomID))
    pipe.SRem(ctx, s.keyLobby(), roomID)
    pipe.Publish(ctx, lobbyChannel, ev)
    if _, err := pipe.Exec(ctx); err != nil {
        return fmt.Errorf("delete room %s: %w", roomID, err)
    }
    return nil
}

// Room loads one summary; nil when absent.
func (s *Store) Room(ctx context.Context, roomID string) (*omokdto.RoomSummary, error) {
    raw, err := s.rdb.Get(ctx, s.keyRoom(roomID)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var r omokdto.RoomSummary
    if err := json.Unmarshal(raw, &r); err != nil { return nil, err }
    return &r, nil
}

// ListRooms returns every mirrored room ordered by id. Index entries whose
// summary has expired are pruned.
func (s *Store) ListRooms(ctx context.Context) ([]omokdto.RoomSummary, error) {
    ids, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
    if err != nil { return nil, err }
    out := make([]omokdto.RoomSummary, 0, len(ids))
    var stale []any
    for _, id := range ids {
        r, err := s.Room(ctx, id)
        if err != nil { return nil, err }
        if r == nil {
            stale = append(stale, id)
            continue
        }
        out = append(out, *r)
    }
    if len(stale) > 0 {
        _ = s.rdb.SRem(ctx, s.keyLobby(), stale...).Err()
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

// Reset drops every mirrored room. Called at startup since rooms do not
// survive a restart.
func (s *Store) Reset(ctx context.Context) error {
    ids, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
    if err != nil { return err }
    keys := make([]string, 0, len(ids)+1)
    for _, id := range ids { keys = append(keys, s.keyRoom(id)) }
    keys = append(keys, s.keyLobby())
    if err := s.rdb.Del(ctx, keys...).Err(); err != nil { return err }
    obslog.L().Info("directory_reset", zap.Int("rooms", len(ids)))
    return nil
}

// Watch delivers lobby events to fn until ctx is done.
func (s *Store) Watch(ctx context.Context, fn func(Event)) error {
    sub := s.rdb.Subscribe(ctx, lobbyChannel)
    defer sub.Close()
    if _, err := sub.Receive(ctx); err != nil {
        return fmt.Errorf("subscribe: %w", err)
    }
    ch := sub.Channel()
    for {
        select {
        case <-ctx.Done():
            return nil
        case msg, ok := <-ch:
            if !ok { return nil }
            var ev Event
            if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
                obslog.L().Warn("directory_bad_event", zap.Error(err))
                continue
            }
            fn(ev)
        }
    }
}

func parseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(strings.TrimSpace(raw))
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil { return nil, fmt.Errorf("invalid redis db %q", p) }
        db = n
    }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
