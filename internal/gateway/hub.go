package gateway

import (
	"encoding/json"
	"sync"

	"github.com/park285/omok-server/internal/obslog"
	"go.uber.org/zap"
)

// Hub tracks connected sessions and fans dispatch results out to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	n := len(h.sessions)
	h.mu.Unlock()
	obslog.L().Info("session_open", zap.String("session_id", s.ID), zap.String("name", s.Name), zap.Int("sessions", n))
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	n := len(h.sessions)
	h.mu.Unlock()
	if ok {
		obslog.L().Info("session_close", zap.String("session_id", id), zap.Int("sessions", n))
	}
}

// Name returns the display name of a connected session, or its id.
func (h *Hub) Name(id string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[id]; ok && s.Name != "" {
		return s.Name
	}
	return id
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Deliver encodes each event once and queues it to its targets. The error
// acknowledgement, if any, goes to origin only.
func (h *Hub) Deliver(origin string, res Result) {
	for _, d := range res.Deliveries {
		b, err := json.Marshal(d.Event)
		if err != nil {
			obslog.L().Error("event_encode_failed", zap.String("type", d.Event.Type), zap.Error(err))
			continue
		}
		h.mu.RLock()
		if d.All {
			for _, s := range h.sessions {
				h.push(s, b)
			}
		} else {
			for _, id := range d.Targets {
				if s, ok := h.sessions[id]; ok {
					h.push(s, b)
				}
			}
		}
		h.mu.RUnlock()
	}
	if res.Err != nil {
		h.mu.RLock()
		s, ok := h.sessions[origin]
		h.mu.RUnlock()
		if !ok {
			return
		}
		b, err := json.Marshal(errorEvent(*res.Err))
		if err != nil {
			return
		}
		h.push(s, b)
	}
}

func (h *Hub) push(s *Session, b []byte) {
	if _, dropped := s.enqueue(b); dropped {
		obslog.L().Warn("session_dropped", zap.String("session_id", s.ID), zap.String("reason", "send buffer full"))
	}
}

// CloseAll ends every session's send queue; their writers then close the
// connections.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		s.Close()
	}
}
