package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// 기물 크기 비율 (칸 대비)
var pieceScale = map[janggi.PieceType]float64{
	janggi.King:     0.92,
	janggi.Chariot:  0.78,
	janggi.Cannon:   0.78,
	janggi.Horse:    0.78,
	janggi.Elephant: 0.78,
	janggi.Guard:    0.62,
	janggi.Soldier:  0.62,
}

// ASCII labels; basicfont has no Hangul glyphs.
var pieceLetter = map[janggi.PieceType]string{
	janggi.King:     "K",
	janggi.Guard:    "G",
	janggi.Elephant: "E",
	janggi.Horse:    "H",
	janggi.Chariot:  "R",
	janggi.Cannon:   "C",
	janggi.Soldier:  "S",
}

var sideInk = map[janggi.Player]string{
	janggi.Player1: "#1f7a3a",
	janggi.Player2: "#b3261e",
}

type pieceKey struct {
	owner janggi.Player
	kind  janggi.PieceType
	size  int
}

var (
	pieceCache   = map[pieceKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSize(t janggi.PieceType, cell int) int {
	s, ok := pieceScale[t]
	if !ok {
		s = 0.7
	}
	return int(float64(cell) * s)
}

// pieceSVG builds the octagonal token for one side and kind.
func pieceSVG(owner janggi.Player, t janggi.PieceType) []byte {
	ink := sideInk[owner]
	if ink == "" {
		ink = "#333333"
	}
	var pts []string
	for i := 0; i < 8; i++ {
		a := math.Pi/8 + float64(i)*math.Pi/4
		pts = append(pts, fmt.Sprintf("%.2f,%.2f", 50+46*math.Cos(a), 50+46*math.Sin(a)))
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" width="100" height="100">`)
	fmt.Fprintf(&b, `<polygon points="%s" fill="#f7ecd2" stroke="%s" stroke-width="5"/>`, strings.Join(pts, " "), ink)
	r := 24
	if t == janggi.King {
		r = 28
	}
	fmt.Fprintf(&b, `<circle cx="50" cy="50" r="%d" fill="%s"/>`, r, ink)
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func renderPieceImage(p janggi.Piece, cell int) (image.Image, error) {
	size := pieceSize(p.Type, cell)
	key := pieceKey{owner: p.Owner, kind: p.Type, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(strings.NewReader(string(pieceSVG(p.Owner, p.Type))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s/%s: %w", p.Owner, p.Type, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	drawLabel(img, pieceLetter[p.Type])

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

func drawLabel(img *image.RGBA, text string) {
	if text == "" {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: basicfont.Face7x13}
	w := d.MeasureString(text).Round()
	m := basicfont.Face7x13.Metrics()
	b := img.Bounds()
	baseline := b.Min.Y + (b.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(b.Min.X+(b.Dx()-w)/2, baseline)
	d.DrawString(text)
}
