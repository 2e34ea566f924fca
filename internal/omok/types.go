package omok

import (
	"errors"
	"strings"
	"time"
)

// BoardSize is the side length of the square board.
const BoardSize = 15

// WinLength is the run length that wins a game.
const WinLength = 5

// Cell is the state of one board intersection.
type Cell uint8

const (
	Empty Cell = iota
	Black
	White
)

// Color is a stone color. Only Black and White are valid colors.
type Color = Cell

func (c Cell) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// Opponent returns the other stone color.
func (c Cell) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// ParseColor maps the wire form ("black" / "white") to a Color.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "b":
		return Black, nil
	case "white", "w":
		return White, nil
	default:
		return Empty, ErrInvalidColor
	}
}

// Phase is the coarse state of a Match.
type Phase string

const (
	PhaseWaitingForColors Phase = "WAITING_FOR_COLORS"
	PhaseInProgress       Phase = "IN_PROGRESS"
	PhaseFinished         Phase = "FINISHED"
)

var (
	ErrOutOfBounds     = errors.New("coordinates out of bounds")
	ErrCellOccupied    = errors.New("cell already occupied")
	ErrInvalidColor    = errors.New("invalid color")
	ErrColorTaken      = errors.New("color already taken")
	ErrAlreadyAssigned = errors.New("player already holds a color")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameNotRunning  = errors.New("game not running")
	ErrInvalidPlayer   = errors.New("invalid player")
)

// OutcomeKind tells how an accepted move ended.
type OutcomeKind string

const (
	OutcomeContinue OutcomeKind = "continue"
	OutcomeWin      OutcomeKind = "win"
	OutcomeDraw     OutcomeKind = "draw"
)

// MoveOutcome describes an accepted move.
type MoveOutcome struct {
	Kind   OutcomeKind
	Row    int
	Col    int
	Player string
	Color  Color
	// NextTurn is the new turn owner; empty once the game is over.
	NextTurn string

	// Populated for win and draw.
	Winner     string
	BlackID    string
	WhiteID    string
	Moves      int
	StartedAt  time.Time
	FinishedAt time.Time
	FinalBoard [BoardSize][BoardSize]Cell
}

// Over reports whether the move ended the game.
func (o MoveOutcome) Over() bool { return o.Kind == OutcomeWin || o.Kind == OutcomeDraw }

// ColorAssignment is the result of a successful AssignColor.
type ColorAssignment struct {
	Player string
	Color  Color
	// Changed is false when the player re-selected the color it already holds.
	Changed bool
	// Started is true when this assignment completed the pair and the game began.
	Started bool
	BlackID string
	WhiteID string
}

// MatchState is a copy of a Match for presentation.
type MatchState struct {
	Phase     Phase
	BlackID   string
	WhiteID   string
	TurnOwner string
	Moves     int
	Board     [BoardSize][BoardSize]Cell
}

// ColorOf returns the color assigned to player in this snapshot.
func (s MatchState) ColorOf(player string) Color {
	switch {
	case player == "":
		return Empty
	case s.BlackID == player:
		return Black
	case s.WhiteID == player:
		return White
	default:
		return Empty
	}
}
