// Package render draws a Janggi board as a PNG for chat delivery.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"
	"sync"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Options decorate the board. All fields are optional.
type Options struct {
	LastMove *janggi.MoveRecord
	Selected *janggi.Position
	Targets  []janggi.Position
	Header   string
	Turn     janggi.Player
}

// BoardRenderer turns a board into PNG bytes.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *janggi.Board, opts Options) ([]byte, error)
}

const (
	cell      = 64
	boardPad  = 40
	margin    = 28
	hudHeight = 56
)

var (
	gridW       = (janggi.Cols - 1) * cell
	gridH       = (janggi.Rows - 1) * cell
	boardOrigin = image.Pt(margin, hudHeight)
	gridOrigin  = image.Pt(margin+boardPad, hudHeight+boardPad)
	boardRect   = image.Rect(boardOrigin.X, boardOrigin.Y, boardOrigin.X+gridW+2*boardPad, boardOrigin.Y+gridH+2*boardPad)
	canvas      = image.Rect(0, 0, boardRect.Max.X+margin, boardRect.Max.Y+margin)
)

var (
	backgroundColor = color.RGBA{R: 36, G: 33, B: 44, A: 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 214, B: 92, A: 150}
	selectedFill    = color.NRGBA{R: 120, G: 190, B: 255, A: 150}
	targetDot       = color.NRGBA{R: 40, G: 120, B: 220, A: 190}
	captureRing     = color.NRGBA{R: 220, G: 50, B: 50, A: 190}
	boardShadow     = color.NRGBA{0, 0, 0, 70}
)

type svgRenderer struct {
	mu   sync.Mutex // oksvg paths keep per-draw scratch state
	grid *oksvg.SvgIcon
}

// New parses the board grid once and returns a renderer safe for concurrent use.
func New() (BoardRenderer, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(gridSVG()))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	return &svgRenderer{grid: icon}, nil
}

// Size is the pixel size of every rendered image.
func Size() image.Point { return canvas.Size() }

func (r *svgRenderer) RenderPNG(ctx context.Context, board *janggi.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, errors.New("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(canvas)
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	imagedraw.Draw(img, boardRect.Add(image.Pt(5, 8)), image.NewUniform(boardShadow), image.Point{}, imagedraw.Over)

	r.drawGrid(img)
	drawHUD(img, board, opts)
	drawCoordinates(img)
	drawMoveHighlight(img, opts.LastMove)
	if opts.Selected != nil {
		drawDisc(img, intersection(*opts.Selected), cell*45/100, selectedFill)
	}

	for _, side := range []janggi.Player{janggi.Player1, janggi.Player2} {
		for _, p := range board.Pieces[side] {
			if !p.Alive {
				continue
			}
			pimg, err := renderPieceImage(p, cell)
			if err != nil {
				return nil, err
			}
			c := intersection(p.Pos())
			b := pimg.Bounds()
			dst := image.Rect(c.X-b.Dx()/2, c.Y-b.Dy()/2, c.X-b.Dx()/2+b.Dx(), c.Y-b.Dy()/2+b.Dy())
			imagedraw.Draw(img, dst, pimg, image.Point{}, imagedraw.Over)
		}
	}
	drawTargets(img, board, opts.Targets)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGrid rasterises the shared grid icon.
func (r *svgRenderer) drawGrid(img *image.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	icon := r.grid
	icon.SetTarget(float64(boardRect.Min.X), float64(boardRect.Min.Y), float64(boardRect.Dx()), float64(boardRect.Dy()))
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
}

// gridSVG describes the wooden board in board-local coordinates: 9x10 lines and the
// two palace diagonals.
func gridSVG() string {
	bw, bh := gridW+2*boardPad, gridH+2*boardPad
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, bw, bh, bw, bh)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#e3bf7f"/>`, bw, bh)
	line := func(x1, y1, x2, y2 int) {
		fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#5b3b1c" stroke-width="2"/>`,
			boardPad+x1*cell, boardPad+y1*cell, boardPad+x2*cell, boardPad+y2*cell)
	}
	for x := 0; x < janggi.Cols; x++ {
		line(x, 0, x, janggi.Rows-1)
	}
	for y := 0; y < janggi.Rows; y++ {
		line(0, y, janggi.Cols-1, y)
	}
	for _, top := range []int{0, janggi.Rows - 3} {
		line(3, top, 5, top+2)
		line(5, top, 3, top+2)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

// intersection is the pixel centre of a board point.
func intersection(p janggi.Position) image.Point {
	return image.Pt(gridOrigin.X+p.X*cell, gridOrigin.Y+p.Y*cell)
}

func drawMoveHighlight(img *image.RGBA, mv *janggi.MoveRecord) {
	if mv == nil || !mv.From.InBounds() || !mv.To.InBounds() {
		return
	}
	drawDisc(img, intersection(mv.From), cell*45/100, lastMoveFill)
	drawDisc(img, intersection(mv.To), cell*45/100, lastMoveFill)
	drawArrow(img, intersection(mv.From), intersection(mv.To), lastMoveFill)
}

// Targets on empty points get a dot, targets on enemy pieces a ring.
func drawTargets(img *image.RGBA, board *janggi.Board, targets []janggi.Position) {
	for _, t := range targets {
		if !t.InBounds() {
			continue
		}
		c := intersection(t)
		if board.PieceAt(t) != nil {
			drawRing(img, c, cell*46/100, 4, captureRing)
			continue
		}
		drawDisc(img, c, cell/8, targetDot)
	}
}
