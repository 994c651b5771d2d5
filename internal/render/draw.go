package render

import (
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	hudPanel     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudText      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudDim       = color.NRGBA{R: 170, G: 176, B: 200, A: 255}
	coordText    = color.NRGBA{R: 226, G: 200, B: 150, A: 255}
	pointValue   = map[janggi.PieceType]float64{janggi.Chariot: 13, janggi.Cannon: 7, janggi.Horse: 5, janggi.Elephant: 3, janggi.Guard: 3, janggi.Soldier: 2}
	sideLabel    = map[janggi.Player]string{janggi.Player1: "CHO", janggi.Player2: "HAN"}
	hanBonus     = 1.5
	panelPadding = 14
)

// Score sums the standard point values of a side's live pieces. 한(후수)은 덤 1.5.
func Score(b *janggi.Board, side janggi.Player) float64 {
	if b == nil {
		return 0
	}
	var total float64
	for _, p := range b.Pieces[side] {
		if p.Alive {
			total += pointValue[p.Type]
		}
	}
	if side == janggi.Player2 {
		total += hanBonus
	}
	return total
}

func turnLine(b *janggi.Board, opts Options) string {
	if b.Winner != janggi.NoPlayer {
		return sideLabel[b.Winner] + " wins"
	}
	turn := b.Turn
	if turn == janggi.NoPlayer {
		turn = opts.Turn
	}
	if s, ok := sideLabel[turn]; ok {
		return s + " to move"
	}
	return ""
}

func drawHUD(img *image.RGBA, b *janggi.Board, opts Options) {
	panel := image.Rect(boardRect.Min.X, 10, boardRect.Max.X, hudHeight-10)
	drawRoundedPanel(img, panel, 10, hudPanel)

	d := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	m := d.Face.Metrics()
	baseline := panel.Min.Y + (panel.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2

	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = "JANGGI"
	}
	score := fmt.Sprintf("CHO %g : HAN %g", Score(b, janggi.Player1), Score(b, janggi.Player2))
	turn := turnLine(b, opts)

	d.Src = image.NewUniform(hudText)
	d.Dot = fixed.P(panel.Min.X+panelPadding, baseline)
	d.DrawString(truncate(d, header, panel.Dx()/2-panelPadding))

	d.Src = image.NewUniform(hudDim)
	w := d.MeasureString(score).Round()
	d.Dot = fixed.P(panel.Max.X-panelPadding-w, baseline)
	d.DrawString(score)

	if turn != "" {
		d.Src = image.NewUniform(hudText)
		w = d.MeasureString(turn).Round()
		d.Dot = fixed.P(panel.Min.X+(panel.Dx()-w)/2, baseline)
		d.DrawString(turn)
	}
}

// drawCoordinates labels files a-i under the board and ranks 0-9 on the left,
// matching the square notation used in chat commands.
func drawCoordinates(img *image.RGBA) {
	d := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordText)}
	ascent := d.Face.Metrics().Ascent.Ceil()
	for x := 0; x < janggi.Cols; x++ {
		c := intersection(janggi.Position{X: x, Y: janggi.Rows - 1})
		drawCenteredText(d, string(rune('a'+x)), c.X, boardRect.Max.Y+ascent+4)
	}
	for y := 0; y < janggi.Rows; y++ {
		c := intersection(janggi.Position{X: 0, Y: y})
		drawCenteredText(d, fmt.Sprint(y), margin/2, c.Y+ascent/2)
	}
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}

func truncate(d *font.Drawer, text string, maxWidth int) string {
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ""
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if lim := min(rect.Dx(), rect.Dy()) / 2; radius > lim {
		radius = lim
	}
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterSafeDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterSafeDisc fills the corner disc but only the part outside the already
// painted cross, so translucent panels do not double-blend.
func drawQuarterSafeDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	side := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := image.Pt(center.X+dx, center.Y+dy)
			if !p.In(rect) || p.In(inner) || p.In(side) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				blendPixel(img, center.X+dx, center.Y+dy, clr)
			}
		}
	}
}

func drawRing(img *image.RGBA, center image.Point, radius, width int, clr color.Color) {
	outer, inner := radius*radius, (radius-width)*(radius-width)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if d := dx*dx + dy*dy; d <= outer && d > inner {
				blendPixel(img, center.X+dx, center.Y+dy, clr)
			}
		}
	}
}

type pointF struct{ X, Y float64 }

// drawArrow paints a shaft and head from one intersection towards another, stopping
// short of the destination so the moved piece stays readable.
func drawArrow(img *image.RGBA, from, to image.Point, clr color.Color) {
	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	half := float64(cell) * 0.08
	head := float64(cell) * 0.22
	tip := pointF{float64(to.X) - ux*float64(cell)*0.3, float64(to.Y) - uy*float64(cell)*0.3}
	base := pointF{tip.X - ux*head, tip.Y - uy*head}
	start := pointF{float64(from.X), float64(from.Y)}

	fillTriangle(img, pointF{start.X - px*half, start.Y - py*half}, pointF{start.X + px*half, start.Y + py*half}, pointF{base.X + px*half, base.Y + py*half}, clr)
	fillTriangle(img, pointF{start.X - px*half, start.Y - py*half}, pointF{base.X + px*half, base.Y + py*half}, pointF{base.X - px*half, base.Y - py*half}, clr)
	fillTriangle(img, tip, pointF{base.X - px*head/1.5, base.Y - py*head/1.5}, pointF{base.X + px*head/1.5, base.Y + py*head/1.5}, clr)
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			alpha := ((b.Y-c.Y)*(fx-c.X) + (c.X-b.X)*(fy-c.Y)) / denom
			beta := ((c.Y-a.Y)*(fx-c.X) + (a.X-c.X)*(fy-c.Y)) / denom
			if alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0 {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

// blendPixel composites clr over the pixel (source-over, premultiplied destination).
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}
