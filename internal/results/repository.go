package results

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    _ "github.com/lib/pq"
    "github.com/park285/omok-server/pkg/omokdto"
)

const schema = `CREATE TABLE IF NOT EXISTS omok_results (
    game_id      TEXT PRIMARY KEY,
    room_id      TEXT NOT NULL,
    room_name    TEXT NOT NULL DEFAULT '',
    black_id     TEXT NOT NULL,
    black_name   TEXT NOT NULL DEFAULT '',
    white_id     TEXT NOT NULL,
    white_name   TEXT NOT NULL DEFAULT '',
    result       TEXT NOT NULL,
    winner_id    TEXT NOT NULL DEFAULT '',
    moves        INTEGER NOT NULL,
    last_row     INTEGER NOT NULL,
    last_col     INTEGER NOT NULL,
    board        TEXT NOT NULL,
    started_at   TIMESTAMPTZ,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0
)`

// Repository is the Postgres ledger of finished games.
type Repository struct {
    db *sql.DB
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(16)
    db.SetMaxIdleConns(8)
    db.SetConnMaxLifetime(30 * time.Minute)
    pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(pctx); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("postgres ping: %w", err)
    }
    return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
    if r == nil || r.db == nil { return nil }
    return r.db.Close()
}

// EnsureSchema creates the results table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
    if _, err := r.db.ExecContext(ctx, schema); err != nil {
        return fmt.Errorf("ensure schema: %w", err)
    }
    return nil
}

// RecordResult upserts a finished game.
func (r *Repository) RecordResult(ctx context.Context, g omokdto.GameResult) error {
    if r == nil || r.db == nil {
        return nil
    }
    q := `INSERT INTO omok_results (
        game_id, room_id, room_name, black_id, black_name, white_id, white_name,
        result, winner_id, moves, last_row, last_col, board,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        winner_id=EXCLUDED.winner_id,
        moves=EXCLUDED.moves,
        last_row=EXCLUDED.last_row,
        last_col=EXCLUDED.last_col,
        board=EXCLUDED.board,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

    var started any
    if !g.StartedAt.IsZero() { started = g.StartedAt }
    _, err := r.db.ExecContext(ctx, q,
        g.ID, g.RoomID, g.RoomName,
        g.BlackID, g.BlackName, g.WhiteID, g.WhiteName,
        resultToken(g), g.WinnerID, g.Moves, g.LastRow, g.LastCol, EncodeBoard(g.Board),
        started, g.FinishedAt, g.Duration().Milliseconds(),
    )
    if err != nil {
        return fmt.Errorf("record result %s: %w", g.ID, err)
    }
    return nil
}

// Recent returns the latest finished games, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]omokdto.GameResult, error) {
    if limit <= 0 || limit > 100 { limit = 20 }
    rows, err := r.db.QueryContext(ctx, `SELECT game_id, room_id, room_name, black_id, black_name,
        white_id, white_name, result, winner_id, moves, last_row, last_col, board, started_at, ended_at
        FROM omok_results ORDER BY ended_at DESC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []omokdto.GameResult
    for rows.Next() {
        var (
            g       omokdto.GameResult
            result  string
            board   string
            started sql.NullTime
        )
        if err := rows.Scan(&g.ID, &g.RoomID, &g.RoomName, &g.BlackID, &g.BlackName,
            &g.WhiteID, &g.WhiteName, &result, &g.WinnerID, &g.Moves, &g.LastRow, &g.LastCol,
            &board, &started, &g.FinishedAt); err != nil {
            return nil, err
        }
        g.Draw = result == "draw"
        if !g.Draw { g.WinnerColor = result }
        if started.Valid { g.StartedAt = started.Time }
        g.Board = DecodeBoard(board)
        out = append(out, g)
    }
    return out, rows.Err()
}

func resultToken(g omokdto.GameResult) string {
    if g.Draw { return "draw" }
    switch strings.ToLower(strings.TrimSpace(g.WinnerColor)) {
    case "black":
        return "black"
    case "white":
        return "white"
    default:
        return "unknown"
    }
}

// EncodeBoard packs the board row-major as '.', 'B' and 'W'.
func EncodeBoard(board [][]int) string {
    var b strings.Builder
    for _, row := range board {
        for _, c := range row {
            switch c {
            case 1:
                b.WriteByte('B')
            case 2:
                b.WriteByte('W')
            default:
                b.WriteByte('.')
            }
        }
    }
    return b.String()
}

// DecodeBoard is the inverse of EncodeBoard for a square board.
func DecodeBoard(s string) [][]int {
    n := 0
    for n*n < len(s) { n++ }
    if n == 0 || n*n != len(s) { return nil }
    out := make([][]int, n)
    for r := 0; r < n; r++ {
        out[r] = make([]int, n)
        for c := 0; c < n; c++ {
            switch s[r*n+c] {
            case 'B':
                out[r][c] = 1
            case 'W':
                out[r][c] = 2
            }
        }
    }
    return out
}
