package heatimg

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"gridheat/internal/pivot"
)

func buildMatrix(t *testing.T, days int, value func(day, hour int) float64) *pivot.Matrix {
	t.Helper()
	var samples []pivot.Sample
	for d := 0; d < days; d++ {
		date := time.Date(2024, 1, 1+d, 0, 0, 0, 0, time.UTC)
		for h := 0; h < pivot.HoursPerDay; h++ {
			samples = append(samples, pivot.Sample{Date: date, Hour: h, Value: value(d, h)})
		}
	}
	m, err := pivot.Build(samples, pivot.RejectDuplicates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestRender(t *testing.T) {
	m := buildMatrix(t, 31, func(d, h int) float64 { return float64(d + h) })

	data, err := Render(m)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	wantW := marginLeft + 31*cellWidth + marginRight
	wantH := marginTop + pivot.HoursPerDay*cellHeight + marginBot
	got := img.Bounds()
	if got.Dx() != wantW || got.Dy() != wantH {
		t.Errorf("dimensions = %dx%d, want %dx%d", got.Dx(), got.Dy(), wantW, wantH)
	}
}

func TestRenderOverlay(t *testing.T) {
	base := buildMatrix(t, 5, func(d, h int) float64 { return float64(h) })
	overlay := buildMatrix(t, 5, func(d, h int) float64 { return float64(d) })

	data, err := RenderOverlay(base, overlay)
	if err != nil {
		t.Fatalf("RenderOverlay: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
}

func TestRenderOverlay_DateMismatch(t *testing.T) {
	base := buildMatrix(t, 5, func(d, h int) float64 { return 1 })
	overlay := buildMatrix(t, 4, func(d, h int) float64 { return 1 })

	if _, err := RenderOverlay(base, overlay); err == nil {
		t.Error("RenderOverlay accepted mismatched date spans")
	}
}

func TestRenderOverlay_ShiftedDates(t *testing.T) {
	base := buildMatrix(t, 3, func(d, h int) float64 { return 1 })

	var samples []pivot.Sample
	for d := 0; d < 3; d++ {
		date := time.Date(2024, 1, 2+d, 0, 0, 0, 0, time.UTC)
		samples = append(samples, pivot.Sample{Date: date, Hour: 0, Value: 1})
	}
	overlay, err := pivot.Build(samples, pivot.RejectDuplicates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := RenderOverlay(base, overlay); err == nil {
		t.Error("RenderOverlay accepted equal-length matrices over different dates")
	}
}

func TestRender_EmptyMatrix(t *testing.T) {
	m, err := pivot.Build(nil, pivot.RejectDuplicates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Render(m); err == nil {
		t.Error("Render accepted a matrix with no columns")
	}
}

func TestScaleColor(t *testing.T) {
	if got := scaleColor(heatScale, 0); got != heatScale[0].RGB {
		t.Errorf("scaleColor(0) = %v, want first stop", got)
	}
	if got := scaleColor(heatScale, 1); got != heatScale[len(heatScale)-1].RGB {
		t.Errorf("scaleColor(1) = %v, want last stop", got)
	}
	if got := scaleColor(overlayAlpha, 0.2); got.A != 0 {
		t.Errorf("overlay alpha at 0.2 = %d, want fully transparent", got.A)
	}
	if got := scaleColor(overlayAlpha, 1); got.A != 255 {
		t.Errorf("overlay alpha at 1 = %d, want opaque", got.A)
	}
}

func TestNormalize_FlatRange(t *testing.T) {
	if got := normalize(5, 5, 5); got != 0 {
		t.Errorf("normalize flat range = %v, want 0", got)
	}
}
