package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/park285/omok-server/internal/lobby"
	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/pkg/omokdto"
	"go.uber.org/zap"
)

// RoomLister is the Redis lobby mirror as seen by the HTTP API.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]omokdto.RoomSummary, error)
}

// ResultLister is the results ledger as seen by the HTTP API.
type ResultLister interface {
	Recent(ctx context.Context, limit int) ([]omokdto.GameResult, error)
}

// SessionCounter reports connected sessions.
type SessionCounter interface {
	Len() int
}

type Deps struct {
	PublicDir string
	Registry  *lobby.Registry
	WS        http.Handler
	Sessions  SessionCounter
	Directory RoomLister   // optional
	Ledger    ResultLister // optional
}

// NewMux wires the page, static, WebSocket and API routes.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	page := func(name string) http.HandlerFunc {
		path := filepath.Join(d.PublicDir, name)
		return func(w http.ResponseWriter, r *http.Request) { http.ServeFile(w, r, path) }
	}
	mux.HandleFunc("GET /{$}", page("index.html"))
	mux.HandleFunc("GET /room", page("room.html"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(d.PublicDir))))
	if d.WS != nil {
		mux.Handle("GET /ws", d.WS)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		sessions := 0
		if d.Sessions != nil {
			sessions = d.Sessions.Len()
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": d.Registry.Len(), "sessions": sessions})
	})
	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("source") == "directory" {
			if d.Directory == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "directory not configured"})
				return
			}
			rooms, err := d.Directory.ListRooms(r.Context())
			if err != nil {
				obslog.L().Warn("api_rooms_directory_failed", zap.Error(err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "directory unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, omokdto.RoomList{Rooms: rooms})
			return
		}
		list := d.Registry.ListRooms()
		out := omokdto.RoomList{Rooms: make([]omokdto.RoomSummary, 0, len(list))}
		for _, s := range list {
			out.Rooms = append(out.Rooms, omokdto.RoomSummary{ID: s.ID, Name: s.Name, Players: s.Players, MaxPlayers: s.Capacity, Phase: string(s.Phase)})
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/results", func(w http.ResponseWriter, r *http.Request) {
		if d.Ledger == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ledger not configured"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		res, err := d.Ledger.Recent(r.Context(), limit)
		if err != nil {
			obslog.L().Warn("api_results_failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ledger unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": res})
	})
	return mux
}

// New returns an http.Server with the timeouts used in production. Upgraded
// WebSocket connections are not subject to them.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           logRequests(h),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		obslog.L().Debug("http_request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
