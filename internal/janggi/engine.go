package janggi

// RejectReason classifies a refused move. Rejections are expected results, not faults.
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonNotInGame     RejectReason = "NOT_IN_GAME"
	ReasonGameOver      RejectReason = "GAME_OVER"
	ReasonNotYourTurn   RejectReason = "NOT_YOUR_TURN"
	ReasonPieceNotFound RejectReason = "PIECE_NOT_FOUND"
	ReasonPieceDead     RejectReason = "PIECE_DEAD"
	ReasonNotYourPiece  RejectReason = "NOT_YOUR_PIECE"
	ReasonInvalidMove   RejectReason = "INVALID_MOVE"
)

// Outcome is the result of an accepted move from the requester's point of view.
type Outcome string

const (
	OutcomeContinue Outcome = "GAME_CONTINUE"
	OutcomeWin      Outcome = "YOU_WIN"
	OutcomeLose     Outcome = "YOU_LOSE"
)

// MoveResult is either a rejection (Accepted=false, Reason set) or an accepted transition.
type MoveResult struct {
	Accepted        bool
	Reason          RejectReason
	Next            *Board
	Move            *MoveRecord
	CapturedPieceID string
	Winner          Player
	Mover           Player
}

func reject(reason RejectReason) MoveResult { return MoveResult{Reason: reason} }

// OutcomeFor maps an accepted result to the requester's view.
func (r MoveResult) OutcomeFor(p Player) Outcome {
	switch {
	case !r.Accepted || r.Winner == NoPlayer:
		return OutcomeContinue
	case r.Winner == p:
		return OutcomeWin
	default:
		return OutcomeLose
	}
}

// ApplyMove validates req against board and returns the next state.
// board is never modified; the next state is a fresh copy.
func ApplyMove(board *Board, req MoveRequest) MoveResult {
	side := req.Player
	if !side.Valid() {
		return reject(ReasonNotInGame)
	}
	if board == nil {
		return reject(ReasonPieceNotFound)
	}
	if board.Winner != NoPlayer {
		return reject(ReasonGameOver)
	}
	if board.Turn != NoPlayer && board.Turn != side {
		return reject(ReasonNotYourTurn)
	}
	piece := board.Find(req.PieceID)
	if piece == nil {
		return reject(ReasonPieceNotFound)
	}
	if !piece.Alive {
		return reject(ReasonPieceDead)
	}
	if piece.Owner != side {
		return reject(ReasonNotYourPiece)
	}
	to := Position{X: req.ToX, Y: req.ToY}
	if !IsLegal(*piece, board, to) {
		return reject(ReasonInvalidMove)
	}

	next := board.Clone()
	moving := next.Find(req.PieceID)
	rec := &MoveRecord{PieceID: moving.ID, PieceType: moving.Type, From: moving.Pos(), To: to}

	if target := next.PieceAt(to); target != nil && target.Owner != side {
		target.Alive = false
		rec.CapturedID, rec.CapturedType = target.ID, target.Type
	}
	moving.X, moving.Y = to.X, to.Y

	// 왕이 잡혔는지 양쪽 모두 확인
	winner := NoPlayer
	if !next.KingAlive(Player1) {
		winner = Player2
	}
	if !next.KingAlive(Player2) {
		winner = Player1
	}
	next.Winner = winner
	next.Turn = side.Opponent()

	return MoveResult{
		Accepted:        true,
		Next:            next,
		Move:            rec,
		CapturedPieceID: rec.CapturedID,
		Winner:          winner,
		Mover:           side,
	}
}
