// Package heatimg renders a pivot matrix as a PNG heatmap: one column
// per day, one row per hour with midnight at the top, month and hour tick
// labels, and absent cells left as background.
package heatimg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gridheat/internal/pivot"
)

const (
	cellWidth   = 3
	cellHeight  = 16
	marginLeft  = 48 // hour labels
	marginTop   = 8
	marginBot   = 22 // month labels
	marginRight = 8
)

// colorStop anchors the interpolated color scale at a normalized value.
type colorStop struct {
	At  float64
	RGB color.RGBA
}

// Portland-style scale: cool blues through yellow to red.
var heatScale = []colorStop{
	{0.00, color.RGBA{12, 51, 131, 255}},
	{0.25, color.RGBA{10, 136, 186, 255}},
	{0.50, color.RGBA{242, 211, 56, 255}},
	{0.75, color.RGBA{242, 143, 56, 255}},
	{1.00, color.RGBA{217, 30, 30, 255}},
}

// White-overlay opacity scale: low values fully transparent so only the
// high-usage hours read against the temperature field underneath.
var overlayAlpha = []colorStop{
	{0.00, color.RGBA{255, 255, 255, 0}},
	{0.25, color.RGBA{255, 255, 255, 0}},
	{0.50, color.RGBA{255, 255, 255, 191}},
	{1.00, color.RGBA{255, 255, 255, 255}},
}

// Render draws the matrix with the heat color scale.
func Render(m *pivot.Matrix) ([]byte, error) {
	return render(m, nil)
}

// RenderOverlay draws base with the heat color scale and composites
// overlay on top as white whose opacity scales with the overlay value.
// The two matrices must span the same dates.
func RenderOverlay(base, overlay *pivot.Matrix) ([]byte, error) {
	if len(base.Dates) != len(overlay.Dates) {
		return nil, fmt.Errorf("overlay spans %d dates, base %d", len(overlay.Dates), len(base.Dates))
	}
	for i := range base.Dates {
		if !base.Dates[i].Equal(overlay.Dates[i]) {
			return nil, fmt.Errorf("overlay column %d is %s, base %s", i,
				overlay.Dates[i].Format("2006-01-02"), base.Dates[i].Format("2006-01-02"))
		}
	}
	return render(base, overlay)
}

func render(m, overlay *pivot.Matrix) ([]byte, error) {
	cols := len(m.Dates)
	if cols == 0 {
		return nil, fmt.Errorf("matrix has no columns")
	}

	width := marginLeft + cols*cellWidth + marginRight
	height := marginTop + pivot.HoursPerDay*cellHeight + marginBot
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, color.RGBA{255, 255, 255, 255})

	lo, hi, ok := m.MinMax()
	if !ok {
		return nil, fmt.Errorf("matrix has no values")
	}

	for h := 0; h < pivot.HoursPerDay; h++ {
		for c := 0; c < cols; c++ {
			v, present := m.At(h, c)
			if !present {
				continue
			}
			drawCell(img, c, h, scaleColor(heatScale, normalize(v, lo, hi)))
		}
	}

	if overlay != nil {
		olo, ohi, ook := overlay.MinMax()
		if ook {
			for h := 0; h < pivot.HoursPerDay; h++ {
				for c := 0; c < cols; c++ {
					v, present := overlay.At(h, c)
					if !present {
						continue
					}
					blendCell(img, c, h, scaleColor(overlayAlpha, normalize(v, olo, ohi)))
				}
			}
		}
	}

	drawTicks(img, m, cols)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// scaleColor linearly interpolates between the stops bracketing t.
func scaleColor(stops []colorStop, t float64) color.RGBA {
	if t <= stops[0].At {
		return stops[0].RGB
	}
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].At {
			a, b := stops[i-1], stops[i]
			f := (t - a.At) / (b.At - a.At)
			return color.RGBA{
				R: lerp(a.RGB.R, b.RGB.R, f),
				G: lerp(a.RGB.G, b.RGB.G, f),
				B: lerp(a.RGB.B, b.RGB.B, f),
				A: lerp(a.RGB.A, b.RGB.A, f),
			}
		}
	}
	return stops[len(stops)-1].RGB
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f)
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawCell(img *image.RGBA, col, hour int, c color.RGBA) {
	x0 := marginLeft + col*cellWidth
	y0 := marginTop + hour*cellHeight
	for y := y0; y < y0+cellHeight; y++ {
		for x := x0; x < x0+cellWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// blendCell alpha-composites c over the existing cell pixels.
func blendCell(img *image.RGBA, col, hour int, c color.RGBA) {
	if c.A == 0 {
		return
	}
	alpha := float64(c.A) / 255
	x0 := marginLeft + col*cellWidth
	y0 := marginTop + hour*cellHeight
	for y := y0; y < y0+cellHeight; y++ {
		for x := x0; x < x0+cellWidth; x++ {
			orig := img.RGBAAt(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(orig.R)*(1-alpha) + float64(c.R)*alpha),
				G: uint8(float64(orig.G)*(1-alpha) + float64(c.G)*alpha),
				B: uint8(float64(orig.B)*(1-alpha) + float64(c.B)*alpha),
				A: 255,
			})
		}
	}
}

func drawTicks(img *image.RGBA, m *pivot.Matrix, cols int) {
	labelColor := color.RGBA{60, 60, 60, 255}
	ticks := pivot.DeriveTicks(m)

	for _, t := range ticks.X {
		x := marginLeft + t.Index*cellWidth
		drawText(img, t.Label, x, marginTop+pivot.HoursPerDay*cellHeight+14, labelColor)
	}
	for _, t := range ticks.Y {
		y := marginTop + t.Index*cellHeight + 10
		drawText(img, t.Label, 4, y, labelColor)
	}
}

func drawText(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
