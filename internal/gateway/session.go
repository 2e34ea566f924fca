package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// Session is one connected client. Frames queued with enqueue are written by
// the connection's writer goroutine.
type Session struct {
	ID   string
	Name string

	send    chan []byte
	limiter *rate.Limiter

	mu      sync.Mutex
	closed  bool
	dropped bool
}

// NewSession creates a session with a send buffer of size buffer. A
// non-positive limit disables intent rate limiting.
func NewSession(id, name string, buffer int, limit float64, burst int) *Session {
	if buffer <= 0 {
		buffer = 64
	}
	s := &Session{ID: id, Name: name, send: make(chan []byte, buffer)}
	if limit > 0 {
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
	return s
}

// Allow reports whether another intent may be processed now.
func (s *Session) Allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// Send is the outbound frame queue. It is closed when the session ends.
func (s *Session) Send() <-chan []byte { return s.send }

// enqueue queues b without blocking. A full buffer drops the session;
// dropped is true only for the call that did so.
func (s *Session) enqueue(b []byte) (queued, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	select {
	case s.send <- b:
		return true, false
	default:
		s.closed = true
		s.dropped = true
		close(s.send)
		return false, true
	}
}

// Dropped reports whether the session was closed for falling behind.
func (s *Session) Dropped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close ends the send queue. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}
