package omokdto

import "time"

// GameResult is a finished game as handed to result sinks.
type GameResult struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	RoomName    string    `json:"roomName"`
	BlackID     string    `json:"blackId"`
	BlackName   string    `json:"blackName"`
	WhiteID     string    `json:"whiteId"`
	WhiteName   string    `json:"whiteName"`
	WinnerID    string    `json:"winnerId,omitempty"` // empty on a draw
	WinnerColor string    `json:"winnerColor,omitempty"`
	Draw        bool      `json:"draw"`
	Moves       int       `json:"moves"`
	LastRow     int       `json:"lastRow"`
	LastCol     int       `json:"lastCol"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Board       [][]int   `json:"board"` // 0 empty, 1 black, 2 white
}

// Duration is the wall time between the first color pick completing and the
// final move.
func (r GameResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
