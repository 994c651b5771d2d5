package janggidto

// MoveReport describes one move attempt. Reason is set only for rejections and holds
// the engine's reason code (NOT_YOUR_TURN, INVALID_MOVE, ...).
type MoveReport struct {
	Room     *RoomSnapshot
	Accepted bool
	Reason   string
	Line     string
	Outcome  string
	Captured string
}

// Preview lists where the piece on Square may go, in square notation.
type Preview struct {
	Room   *RoomSnapshot
	Square string
	Piece  string
	Moves  []string
}
