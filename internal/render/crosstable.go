// Package render draws round results as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	CellSize    = 56
	LabelWidth  = 112
	HeaderSize  = 28
	Margin      = 12
	maxLabelLen = 14
)

type Options struct {
	Title string
	// MaxScore is the score that maps to full colour, normally the settings' total weight.
	MaxScore float64
}

var (
	backgroundColor = color.RGBA{R: 28, G: 31, B: 46, A: 255}
	selfCellColor   = color.RGBA{R: 70, G: 74, B: 92, A: 255}
	gridColor       = color.RGBA{R: 20, G: 22, B: 32, A: 255}
	lowColor        = color.RGBA{R: 200, G: 68, B: 68, A: 255}
	midColor        = color.RGBA{R: 214, G: 190, B: 92, A: 255}
	highColor       = color.RGBA{R: 64, G: 170, B: 98, A: 255}
	textColor       = color.RGBA{R: 236, G: 239, B: 255, A: 255}
)

// Size returns the pixel size of a table with n players.
func Size(n int) (w, h int) {
	if n < 1 {
		n = 1
	}
	return Margin*2 + LabelWidth + n*CellSize, Margin*2 + HeaderSize*2 + n*CellSize
}

// CellOrigin is the top-left pixel of cell (row, col).
func CellOrigin(row, col int) image.Point {
	return image.Point{X: Margin + LabelWidth + col*CellSize, Y: Margin + HeaderSize*2 + row*CellSize}
}

// CrossTablePNG renders the heat map of one round's cross table.
func CrossTablePNG(ctx context.Context, table blotto.CrossTable, opts Options) ([]byte, error) {
	n := len(table)
	w, h := Size(n)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rasterizeSVG(img, gridSVG(table, opts.MaxScore, w, h)); err != nil {
		return nil, err
	}

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Cross table"
	}
	drawCenteredString(drawer, image.Rect(Margin, Margin, w-Margin, Margin+HeaderSize), title, textColor)
	if n == 0 {
		drawCenteredString(drawer, image.Rect(Margin, Margin+HeaderSize*2, w-Margin, h-Margin), "no rounds yet", textColor)
	}
	for i, row := range table {
		p := CellOrigin(i, 0)
		drawCenteredString(drawer, image.Rect(Margin, p.Y, Margin+LabelWidth, p.Y+CellSize), shorten(row.Player.Name), textColor)
		c := CellOrigin(0, i)
		drawCenteredString(drawer, image.Rect(c.X, Margin+HeaderSize, c.X+CellSize, Margin+HeaderSize*2), shorten(initials(row.Player.Name)), textColor)
		for j, cell := range row.Cells {
			if cell.Self {
				continue
			}
			o := CellOrigin(i, j)
			drawCenteredString(drawer, image.Rect(o.X, o.Y, o.X+CellSize, o.Y+CellSize), formatScore(cell.Score), textColor)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// gridSVG lays out one rect per cell; colours carry the score.
func gridSVG(table blotto.CrossTable, maxScore float64, w, h int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	n := len(table)
	if n > 0 {
		o := CellOrigin(0, 0)
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, o.X, o.Y, n*CellSize, n*CellSize, hex(gridColor))
	}
	for i, row := range table {
		for j, cell := range row.Cells {
			o := CellOrigin(i, j)
			fill := selfCellColor
			if !cell.Self {
				fill = heat(cell.Score, maxScore)
			}
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, o.X+1, o.Y+1, CellSize-2, CellSize-2, hex(fill))
		}
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func rasterizeSVG(dst *image.RGBA, svg []byte) error {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return fmt.Errorf("parse svg: %w", err)
	}
	bw, bh := dst.Bounds().Dx(), dst.Bounds().Dy()
	icon.SetTarget(0, 0, float64(bw), float64(bh))
	scanner := rasterx.NewScannerGV(bw, bh, dst, dst.Bounds())
	raster := rasterx.NewDasher(bw, bh, scanner)
	icon.Draw(raster, 1.0)
	return nil
}

// heat maps score/max onto low→mid→high.
func heat(score, max float64) color.RGBA {
	t := 0.5
	if max > 0 {
		t = score / max
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if t < 0.5 {
		return lerp(lowColor, midColor, t*2)
	}
	return lerp(midColor, highColor, (t-0.5)*2)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func shorten(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxLabelLen {
		return string(r)
	}
	return string(r[:maxLabelLen-1]) + "~"
}

func initials(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > 6 {
		r = r[:6]
	}
	return string(r)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
