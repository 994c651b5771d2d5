package janggipresenter

import (
	"context"
	"fmt"

	"github.com/park285/Cheese-Janggi/internal/domain"
	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/park285/Cheese-Janggi/internal/lobby"
	"github.com/park285/Cheese-Janggi/internal/obslog"
	"github.com/park285/Cheese-Janggi/internal/pvpjanggi"
	"github.com/park285/Cheese-Janggi/internal/render"
	"github.com/park285/Cheese-Janggi/pkg/janggidto"
	"go.uber.org/zap"
)

// Adapter maps manager results to DTOs and attaches a board image when a renderer is set.
type Adapter struct {
	renderer render.BoardRenderer
}

func NewAdapter(r render.BoardRenderer) *Adapter { return &Adapter{renderer: r} }

func seat(meta *lobby.RoomMeta, p janggi.Player) janggidto.Seat {
	return janggidto.Seat{Side: p.Side(), UserID: meta.UserID(p), Name: meta.Name(p)}
}

func (a *Adapter) snapshot(ctx context.Context, meta *lobby.RoomMeta, board *janggi.Board, last *janggi.MoveRecord, seq int64, opts render.Options) *janggidto.RoomSnapshot {
	if meta == nil || board == nil {
		return nil
	}
	s := &janggidto.RoomSnapshot{
		RoomID:    meta.ID,
		Code:      meta.Code,
		State:     string(meta.State),
		Cho:       seat(meta, janggi.Player1),
		Han:       seat(meta, janggi.Player2),
		MoveCount: seq,
		Score:     janggidto.Score{Cho: render.Score(board, janggi.Player1), Han: render.Score(board, janggi.Player2)},
	}
	if board.Turn.Valid() {
		s.Turn = seat(meta, board.Turn)
	}
	if board.Winner.Valid() {
		w := seat(meta, board.Winner)
		s.Winner = &w
	}
	if last != nil {
		mover := janggi.Player1
		if p := board.Find(last.PieceID); p != nil {
			mover = p.Owner
		}
		s.LastMove = last.Describe(mover)
	}

	if a != nil && a.renderer != nil {
		opts.LastMove = last
		opts.Header = fmt.Sprintf("%s  #%d", meta.Code, seq)
		img, err := a.renderer.RenderPNG(ctx, board, opts)
		if err != nil {
			obslog.L().Warn("board_render_error", zap.String("room_id", meta.ID), zap.Error(err))
		} else {
			s.BoardImage = img
		}
	}
	return s
}

// View snapshots a loaded room.
func (a *Adapter) View(ctx context.Context, v *pvpjanggi.RoomView) *janggidto.RoomSnapshot {
	if v == nil {
		return nil
	}
	return a.snapshot(ctx, v.Meta, v.Board, v.LastMove, v.Seq, render.Options{})
}

// Move maps an outcome. Rejections carry no snapshot: the board did not change.
func (a *Adapter) Move(ctx context.Context, o *pvpjanggi.MoveOutcome) *janggidto.MoveReport {
	if o == nil {
		return nil
	}
	r := &janggidto.MoveReport{Accepted: o.Result.Accepted, Outcome: string(o.Outcome)}
	if !o.Result.Accepted {
		r.Reason = string(o.Result.Reason)
		return r
	}
	if mv := o.Result.Move; mv != nil {
		r.Line = mv.Describe(o.Result.Mover)
		if mv.CapturedID != "" {
			r.Captured = mv.CapturedType.Korean()
		}
	}
	var seq int64
	if o.Record != nil {
		seq = o.Record.Seq
	}
	r.Room = a.snapshot(ctx, o.Meta, o.Result.Next, o.Result.Move, seq, render.Options{})
	return r
}

// Preview maps a legal-move hint and highlights the targets on the image.
func (a *Adapter) Preview(ctx context.Context, p *pvpjanggi.Preview, sq janggi.Position) *janggidto.Preview {
	if p == nil {
		return nil
	}
	out := &janggidto.Preview{Square: sq.Notation()}
	opts := render.Options{}
	if p.Piece != nil {
		out.Piece = p.Piece.Type.Korean()
		for _, m := range p.Moves {
			out.Moves = append(out.Moves, m.Notation())
		}
		opts.Selected = &sq
		opts.Targets = p.Moves
	}
	out.Room = a.snapshot(ctx, p.Meta, p.Board, nil, 0, opts)
	return out
}

// History renders each record as one line; the mover is stored on the record.
func History(recs []janggi.HistoryRecord) []janggidto.HistoryEntry {
	out := make([]janggidto.HistoryEntry, 0, len(recs))
	for _, r := range recs {
		if r.Move == nil {
			continue
		}
		out = append(out, janggidto.HistoryEntry{Seq: r.Seq, Line: r.Move.Describe(r.Mover)})
	}
	return out
}

// Games summarises archived games from userID's side.
func Games(userID string, games []*domain.JanggiGame) []janggidto.GameSummary {
	out := make([]janggidto.GameSummary, 0, len(games))
	for _, g := range games {
		if !g.ParticipantOf(userID) {
			continue
		}
		opp := g.Player2Name
		if opp == "" {
			opp = g.Player2ID
		}
		if g.Player2ID == userID {
			opp = g.Player1Name
			if opp == "" {
				opp = g.Player1ID
			}
		}
		out = append(out, janggidto.GameSummary{
			ID:       g.ID,
			Opponent: opp,
			Won:      g.WinnerID == userID,
			Moves:    g.MoveCount,
			EndedAt:  g.EndedAt,
		})
	}
	return out
}
