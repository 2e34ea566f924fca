package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/pkg/omokdto"
	"go.uber.org/zap"
)

// LobbyMirror receives lobby changes for out-of-process readers.
type LobbyMirror interface {
	PutRoom(ctx context.Context, room omokdto.RoomSummary) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// ResultSink receives finished games.
type ResultSink interface {
	RecordResult(ctx context.Context, res omokdto.GameResult) error
}

type sinkJob struct {
	name string
	run  func(ctx context.Context) error
}

// sinkWorker runs side effects off the dispatch path, one at a time and in
// submission order, each under its own timeout.
type sinkWorker struct {
	jobs    chan sinkJob
	timeout time.Duration
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newSinkWorker(queue int, timeout time.Duration) *sinkWorker {
	if queue <= 0 {
		queue = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &sinkWorker{jobs: make(chan sinkJob, queue), timeout: timeout, done: make(chan struct{})}
	go w.loop()
	return w
}

func (w *sinkWorker) loop() {
	defer close(w.done)
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		start := time.Now()
		err := job.run(ctx)
		cancel()
		if err != nil {
			obslog.L().Warn("sink_failed", zap.String("sink", job.name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		}
	}
}

func (w *sinkWorker) submit(name string, run func(ctx context.Context) error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.jobs <- sinkJob{name: name, run: run}:
	default:
		obslog.L().Warn("sink_queue_full", zap.String("sink", name))
	}
}

// close drains queued jobs and waits for them, bounded by ctx.
func (w *sinkWorker) close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
