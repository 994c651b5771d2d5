package janggi

// grid is an occupancy snapshot of alive pieces, built once per generation call.
type grid [Cols][Rows]*Piece

func newGrid(b *Board) *grid {
	var g grid
	if b == nil {
		return &g
	}
	for _, owner := range []Player{Player1, Player2} {
		list := b.Pieces[owner]
		for i := range list {
			p := &list[i]
			if !p.Alive || !p.Pos().InBounds() {
				continue
			}
			g[p.X][p.Y] = p
		}
	}
	return &g
}

func (g *grid) at(x, y int) *Piece {
	if !(Position{X: x, Y: y}).InBounds() {
		return nil
	}
	return g[x][y]
}

// admissible: in bounds and either empty or held by an enemy of owner.
func (g *grid) admissible(x, y int, owner Player) bool {
	if !(Position{X: x, Y: y}).InBounds() {
		return false
	}
	t := g[x][y]
	return t == nil || t.Owner != owner
}

var (
	orthogonal = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	allEight   = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// route is a leg-blocked jump: every square in legs must be empty, dest must be admissible.
type route struct {
	legs [][2]int
	dest [2]int
}

var horseRoutes = []route{
	{legs: [][2]int{{0, -1}}, dest: [2]int{1, -2}},
	{legs: [][2]int{{0, -1}}, dest: [2]int{-1, -2}},
	{legs: [][2]int{{0, 1}}, dest: [2]int{1, 2}},
	{legs: [][2]int{{0, 1}}, dest: [2]int{-1, 2}},
	{legs: [][2]int{{1, 0}}, dest: [2]int{2, -1}},
	{legs: [][2]int{{1, 0}}, dest: [2]int{2, 1}},
	{legs: [][2]int{{-1, 0}}, dest: [2]int{-2, -1}},
	{legs: [][2]int{{-1, 0}}, dest: [2]int{-2, 1}},
}

var elephantRoutes = []route{
	{legs: [][2]int{{0, -1}, {1, -2}}, dest: [2]int{2, -3}},
	{legs: [][2]int{{0, -1}, {-1, -2}}, dest: [2]int{-2, -3}},
	{legs: [][2]int{{0, 1}, {1, 2}}, dest: [2]int{2, 3}},
	{legs: [][2]int{{0, 1}, {-1, 2}}, dest: [2]int{-2, 3}},
	{legs: [][2]int{{1, 0}, {2, -1}}, dest: [2]int{3, -2}},
	{legs: [][2]int{{1, 0}, {2, 1}}, dest: [2]int{3, 2}},
	{legs: [][2]int{{-1, 0}, {-2, -1}}, dest: [2]int{-3, -2}},
	{legs: [][2]int{{-1, 0}, {-2, 1}}, dest: [2]int{-3, 2}},
}

// InPalace reports whether pos lies in owner's 3x3 palace.
func InPalace(owner Player, pos Position) bool {
	if pos.X < 3 || pos.X > 5 {
		return false
	}
	switch owner {
	case Player1:
		return pos.Y >= 7 && pos.Y <= 9
	case Player2:
		return pos.Y >= 0 && pos.Y <= 2
	}
	return false
}

// Forward is the row delta a soldier of owner advances by.
func Forward(owner Player) int {
	if owner == Player1 {
		return -1
	}
	return 1
}

// MovablePositions returns the legal destinations of piece on board.
// It is pure: no turn, history or ownership-of-request checks happen here.
func MovablePositions(piece Piece, board *Board) []Position {
	if !piece.Alive || !piece.Pos().InBounds() {
		return nil
	}
	g := newGrid(board)
	switch piece.Type {
	case King, Guard:
		return palaceSteps(piece, g)
	case Elephant:
		return jumps(piece, g, elephantRoutes)
	case Horse:
		return jumps(piece, g, horseRoutes)
	case Chariot:
		return slides(piece, g)
	case Cannon:
		return cannonJumps(piece, g)
	case Soldier:
		return soldierSteps(piece, g)
	default:
		return nil
	}
}

// GetLegalMoves is the read-only preview entry point; callers use it for hints only.
func GetLegalMoves(piece Piece, board *Board) []Position {
	return MovablePositions(piece, board)
}

// IsLegal reports whether to is among the destinations of piece.
func IsLegal(piece Piece, board *Board, to Position) bool {
	for _, p := range MovablePositions(piece, board) {
		if p == to {
			return true
		}
	}
	return false
}

func palaceSteps(piece Piece, g *grid) []Position {
	var out []Position
	for _, d := range allEight {
		to := Position{X: piece.X + d[0], Y: piece.Y + d[1]}
		if !to.InBounds() || !InPalace(piece.Owner, to) {
			continue
		}
		if g.admissible(to.X, to.Y, piece.Owner) {
			out = append(out, to)
		}
	}
	return out
}

func jumps(piece Piece, g *grid, routes []route) []Position {
	var out []Position
next:
	for _, r := range routes {
		for _, leg := range r.legs {
			lx, ly := piece.X+leg[0], piece.Y+leg[1]
			if !(Position{X: lx, Y: ly}).InBounds() || g.at(lx, ly) != nil {
				continue next
			}
		}
		to := Position{X: piece.X + r.dest[0], Y: piece.Y + r.dest[1]}
		if g.admissible(to.X, to.Y, piece.Owner) {
			out = append(out, to)
		}
	}
	return out
}

func slides(piece Piece, g *grid) []Position {
	var out []Position
	for _, d := range orthogonal {
		x, y := piece.X+d[0], piece.Y+d[1]
		for (Position{X: x, Y: y}).InBounds() {
			t := g.at(x, y)
			if t == nil {
				out = append(out, Position{X: x, Y: y})
			} else {
				if t.Owner != piece.Owner {
					out = append(out, Position{X: x, Y: y})
				}
				break
			}
			x, y = x+d[0], y+d[1]
		}
	}
	return out
}

// cannonJumps: the first occupied square is the screen (any piece). Beyond it empty squares
// are legal and the next occupied square is a capture only for an enemy non-cannon.
func cannonJumps(piece Piece, g *grid) []Position {
	var out []Position
	for _, d := range orthogonal {
		x, y := piece.X+d[0], piece.Y+d[1]
		jumped := false
		for (Position{X: x, Y: y}).InBounds() {
			t := g.at(x, y)
			if !jumped {
				if t != nil {
					jumped = true
				}
			} else {
				if t != nil {
					if t.Owner != piece.Owner && t.Type != Cannon {
						out = append(out, Position{X: x, Y: y})
					}
					break
				}
				out = append(out, Position{X: x, Y: y})
			}
			x, y = x+d[0], y+d[1]
		}
	}
	return out
}

// soldierSteps: forward plus both sideways steps. Sideways is not gated by the river.
func soldierSteps(piece Piece, g *grid) []Position {
	var out []Position
	candidates := [3]Position{
		{X: piece.X, Y: piece.Y + Forward(piece.Owner)},
		{X: piece.X - 1, Y: piece.Y},
		{X: piece.X + 1, Y: piece.Y},
	}
	for _, to := range candidates {
		if g.admissible(to.X, to.Y, piece.Owner) {
			out = append(out, to)
		}
	}
	return out
}
