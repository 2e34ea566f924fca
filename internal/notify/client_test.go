package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/internal/render"
	"github.com/park285/omok-server/pkg/omokdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type capture struct {
	mu     sync.Mutex
	bodies [][]byte
	keys   []string
	calls  int
}

// newTestClient serves handler on an in-memory listener and returns a client
// wired to it.
func newTestClient(t *testing.T, statuses []int, opts ...Option) (*Client, *capture) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	cp := &capture{}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		cp.mu.Lock()
		status := fasthttp.StatusOK
		if cp.calls < len(statuses) {
			status = statuses[cp.calls]
		}
		cp.calls++
		cp.bodies = append(cp.bodies, append([]byte(nil), ctx.PostBody()...))
		cp.keys = append(cp.keys, string(ctx.Request.Header.Peek("Idempotency-Key")))
		cp.mu.Unlock()
		ctx.SetStatusCode(status)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	all := append([]Option{WithDial(func(string) (net.Conn, error) { return ln.Dial() }), WithTimeout(2 * time.Second)}, opts...)
	return NewClient("http://webhook.test/omok", all...), cp
}

func TestPostRetriesServerErrors(t *testing.T) {
	c, cp := newTestClient(t, []int{503, 502, 200})
	if err := c.Post(context.Background(), "g1", map[string]string{"a": "b"}); err != nil { t.Fatalf("Post: %v", err) }
	if cp.calls != 3 { t.Fatalf("calls %d", cp.calls) }
	for _, k := range cp.keys {
		if k != "g1" { t.Fatalf("idempotency key %q", k) }
	}
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	c, cp := newTestClient(t, []int{400})
	err := c.Post(context.Background(), "", map[string]string{})
	if err == nil || !strings.Contains(err.Error(), "status=400") { t.Fatalf("expected 400 error, got %v", err) }
	if cp.calls != 1 { t.Fatalf("calls %d", cp.calls) }
}

func TestPostGivesUpAfterRetryMax(t *testing.T) {
	c, cp := newTestClient(t, []int{500, 500, 500, 500}, WithRetry(2))
	if err := c.Post(context.Background(), "", nil); err == nil { t.Fatalf("expected error") }
	if cp.calls != 2 { t.Fatalf("calls %d", cp.calls) }
}

func TestHeaderProvider(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	got := make(chan string, 1)
	go func() {
		_ = fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) { got <- string(ctx.Request.Header.Peek("X-Token")) })
	}()
	t.Cleanup(func() { _ = ln.Close() })
	c := NewClient("http://webhook.test/", WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Token": "s3cret", " ": "skip"} }))
	if err := c.Post(context.Background(), "", struct{}{}); err != nil { t.Fatalf("Post: %v", err) }
	if v := <-got; v != "s3cret" { t.Fatalf("header %q", v) }
}

func TestNotifierPostsBoardImage(t *testing.T) {
	c, cp := newTestClient(t, nil)
	cat, err := msgcat.New("")
	if err != nil { t.Fatalf("msgcat: %v", err) }
	n := NewNotifier(c, render.NewRenderer(), cat)

	board := make([][]int, 15)
	for i := range board { board[i] = make([]int, 15) }
	for col := 3; col < 8; col++ { board[7][col] = 1 }
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := omokdto.GameResult{
		ID: "game-1", RoomID: "ABC123", RoomName: "duel",
		BlackID: "a", BlackName: "Alice", WhiteID: "b", WhiteName: "Bob",
		WinnerID: "a", WinnerColor: "black", Moves: 9, LastRow: 7, LastCol: 3,
		StartedAt: start, FinishedAt: start.Add(time.Minute), Board: board,
	}
	if err := n.RecordResult(context.Background(), g); err != nil { t.Fatalf("RecordResult: %v", err) }
	if len(cp.bodies) != 1 { t.Fatalf("bodies %d", len(cp.bodies)) }

	var p ResultPayload
	if err := json.Unmarshal(cp.bodies[0], &p); err != nil { t.Fatalf("payload: %v", err) }
	if p.GameID != "game-1" || p.DurationMS != 60000 || p.Color != "black" || p.Draw { t.Fatalf("payload: %+v", p) }
	if !strings.Contains(p.Summary, "Alice") || !strings.Contains(p.Summary, "9") { t.Fatalf("summary %q", p.Summary) }
	raw, err := base64.StdEncoding.DecodeString(p.ImagePNG)
	if err != nil { t.Fatalf("base64: %v", err) }
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil { t.Fatalf("png: %v", err) }
}
