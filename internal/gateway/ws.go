package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/pkg/omokdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type HandlerOptions struct {
	// OriginPatterns are extra host patterns allowed to connect; same-origin
	// requests are always accepted.
	OriginPatterns []string
	SendBuffer     int
	IntentRate     float64
	IntentBurst    int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
}

// Handler upgrades /ws requests and runs one session per connection.
type Handler struct {
	hub  *Hub
	disp *Dispatcher
	cat  *msgcat.Catalog
	opts HandlerOptions
}

func NewHandler(hub *Hub, disp *Dispatcher, cat *msgcat.Catalog, opts HandlerOptions) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 8 << 10
	}
	return &Handler{hub: hub, disp: disp, cat: cat, opts: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(h.opts.ReadLimit)

	id := uuid.NewString()
	s := NewSession(id, guestName(h.cat, id), h.opts.SendBuffer, h.opts.IntentRate, h.opts.IntentBurst)
	h.hub.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, conn, s)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn, s.ID)
	}()

	h.hub.Deliver(id, h.disp.Connect(id))
	if roomID := strings.TrimSpace(r.URL.Query().Get("roomId")); roomID != "" {
		data, _ := json.Marshal(omokdto.JoinRoomRequest{RoomID: roomID})
		h.hub.Deliver(id, h.disp.Dispatch(ctx, id, omokdto.Intent{Type: omokdto.IntentJoinRoom, Data: data}))
	}

	h.readLoop(ctx, conn, s)

	h.hub.Unregister(id)
	h.hub.Deliver(id, h.disp.Disconnect(context.Background(), id))
	s.Close()
	cancel()
	wg.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, s *Session) {
	for {
		typ, b, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_end", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			h.hub.Deliver(s.ID, h.disp.Reject("", omokdto.CodeInvalidPayload))
			continue
		}
		var in omokdto.Intent
		if err := json.Unmarshal(b, &in); err != nil || strings.TrimSpace(in.Type) == "" {
			h.hub.Deliver(s.ID, h.disp.Reject(in.Type, omokdto.CodeInvalidPayload))
			continue
		}
		if !s.Allow() {
			h.hub.Deliver(s.ID, h.disp.Reject(in.Type, omokdto.CodeRateLimited))
			continue
		}
		h.hub.Deliver(s.ID, h.disp.Dispatch(ctx, s.ID, in))
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, s *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-s.Send():
			if !ok {
				if s.Dropped() {
					_ = conn.Close(websocket.StatusPolicyViolation, "send buffer full")
				}
				return
			}
			wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("session_id", s.ID), zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn, id string) {
	t := time.NewTicker(h.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Info("ws_ping_timeout", zap.String("session_id", id))
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
