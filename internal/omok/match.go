package omok

import (
	"strings"
	"sync"
	"time"
)

// Match is the per-room game state machine. All methods are safe for
// concurrent use; each call is applied atomically.
type Match struct {
	mu sync.Mutex

	phase     Phase
	black     string
	white     string
	turnOwner string
	board     Board
	moves     int
	startedAt time.Time

	now func() time.Time
}

// NewMatch returns a match waiting for both colors to be claimed.
func NewMatch() *Match {
	return &Match{phase: PhaseWaitingForColors, now: time.Now}
}

// AssignColor claims color for player. Re-selecting the color the player
// already holds is a no-op. Claiming the second color starts the game with
// Black to move.
func (m *Match) AssignColor(player string, color Color) (ColorAssignment, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return ColorAssignment{}, ErrInvalidPlayer
	}
	if color != Black && color != White {
		return ColorAssignment{}, ErrInvalidColor
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holder := m.holder(color)
	switch {
	case holder == player:
		return ColorAssignment{Player: player, Color: color, BlackID: m.black, WhiteID: m.white}, nil
	case holder != "":
		return ColorAssignment{}, ErrColorTaken
	case m.colorOf(player) != Empty:
		return ColorAssignment{}, ErrAlreadyAssigned
	}

	if color == Black {
		m.black = player
	} else {
		m.white = player
	}
	res := ColorAssignment{Player: player, Color: color, Changed: true}
	if m.black != "" && m.white != "" {
		m.phase = PhaseInProgress
		m.turnOwner = m.black
		m.board.Reset()
		m.moves = 0
		m.startedAt = m.now()
		res.Started = true
	}
	res.BlackID, res.WhiteID = m.black, m.white
	return res, nil
}

// SubmitMove places the mover's stone at (row, col). A winning or
// board-filling move finishes the game and the match immediately returns to a
// fresh WaitingForColors state; the outcome carries the final position.
func (m *Match) SubmitMove(player string, row, col int) (MoveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseInProgress {
		return MoveOutcome{}, ErrGameNotRunning
	}
	if player == "" || player != m.turnOwner {
		return MoveOutcome{}, ErrNotYourTurn
	}
	color := m.colorOf(player)
	if err := m.board.Place(row, col, color); err != nil {
		return MoveOutcome{}, err
	}
	m.moves++

	out := MoveOutcome{Row: row, Col: col, Player: player, Color: color}
	switch {
	case m.board.CheckFive(row, col, color):
		out.Kind = OutcomeWin
		out.Winner = player
	case m.board.Full():
		out.Kind = OutcomeDraw
	default:
		out.Kind = OutcomeContinue
		m.turnOwner = m.holder(color.Opponent())
		out.NextTurn = m.turnOwner
		return out, nil
	}

	m.phase = PhaseFinished
	out.BlackID, out.WhiteID = m.black, m.white
	out.Moves = m.moves
	out.StartedAt = m.startedAt
	out.FinishedAt = m.now()
	out.FinalBoard = m.board.Cells()
	m.reset()
	return out, nil
}

// RemovePlayer clears the player's color. A game in progress cannot continue
// without both players, so it is abandoned and the board cleared; it reports
// whether that happened.
func (m *Match) RemovePlayer(player string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if player == "" {
		return false
	}
	held := false
	if m.black == player {
		m.black = ""
		held = true
	}
	if m.white == player {
		m.white = ""
		held = true
	}
	if !held || m.phase != PhaseInProgress {
		return false
	}
	m.phase = PhaseWaitingForColors
	m.turnOwner = ""
	m.board.Reset()
	m.moves = 0
	m.startedAt = time.Time{}
	return true
}

// Snapshot returns a copy of the current state.
func (m *Match) Snapshot() MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MatchState{
		Phase:     m.phase,
		BlackID:   m.black,
		WhiteID:   m.white,
		TurnOwner: m.turnOwner,
		Moves:     m.moves,
		Board:     m.board.Cells(),
	}
}

// Phase returns the current phase.
func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// reset returns to a fresh WaitingForColors. Caller holds mu.
func (m *Match) reset() {
	m.phase = PhaseWaitingForColors
	m.black, m.white = "", ""
	m.turnOwner = ""
	m.board.Reset()
	m.moves = 0
	m.startedAt = time.Time{}
}

func (m *Match) holder(c Color) string {
	switch c {
	case Black:
		return m.black
	case White:
		return m.white
	default:
		return ""
	}
}

func (m *Match) colorOf(player string) Color {
	switch {
	case player == "":
		return Empty
	case m.black == player:
		return Black
	case m.white == player:
		return White
	default:
		return Empty
	}
}
