package omokdto

// Error codes carried by error acknowledgements.
const (
	CodeRoomNotFound    = "room_not_found"
	CodeRoomFull        = "room_full"
	CodeNotInRoom       = "not_in_room"
	CodeColorTaken      = "color_taken"
	CodeAlreadyAssigned = "already_assigned"
	CodeNotYourTurn     = "not_your_turn"
	CodeGameNotRunning  = "game_not_running"
	CodeCellOccupied    = "cell_occupied"
	CodeOutOfBounds     = "out_of_bounds"
	CodeInvalidColor    = "invalid_color"
	CodeInvalidPayload  = "invalid_payload"
	CodeUnknownIntent   = "unknown_intent"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

type DomainError struct {
	Code    string
	Message string
	Intent  string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "omok server error"
}
