package render

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/castle-blotto/internal/blotto"
)

func sampleTable() blotto.CrossTable {
	settings := &blotto.Settings{Objectives: 3, Weights: []float64{10, 10, 10}, Pool: 10}
	ps := []*blotto.Player{
		{ID: "a", Name: "Alice", Move: []int{10, 0, 0}},
		{ID: "b", Name: "Bartholomew the Bold", Move: []int{0, 0, 10}},
		{ID: "c", Name: "Cara", Move: []int{4, 6, 0}},
	}
	return blotto.ResolveRound(settings, ps).CrossTable
}

func near(a, b color.Color) bool {
	r1, g1, b1, _ := a.RGBA()
	r2, g2, b2, _ := b.RGBA()
	d := func(x, y uint32) bool {
		if x > y {
			return x-y <= 3<<8
		}
		return y-x <= 3<<8
	}
	return d(r1, r2) && d(g1, g2) && d(b1, b2)
}

func TestCrossTablePNG_Dimensions(t *testing.T) {
	raw, err := CrossTablePNG(context.Background(), sampleTable(), Options{Title: "Round 1", MaxScore: 30})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, h := Size(3)
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("unexpected size %v, want %dx%d", img.Bounds(), w, h)
	}

	// self cells carry no text, so their centre is flat colour
	for i := 0; i < 3; i++ {
		o := CellOrigin(i, i)
		got := img.At(o.X+CellSize/2, o.Y+CellSize/2)
		if !near(got, selfCellColor) {
			t.Fatalf("self cell %d: got %v want %v", i, got, selfCellColor)
		}
	}
	// corner of an opponent cell, away from the centred score text
	o := CellOrigin(0, 1)
	if got := img.At(o.X+4, o.Y+4); !near(got, heat(15, 30)) {
		t.Fatalf("tie cell: got %v want %v", got, heat(15, 30))
	}
}

func TestCrossTablePNG_Empty(t *testing.T) {
	raw, err := CrossTablePNG(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, h := Size(0)
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
}

func TestCrossTablePNG_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CrossTablePNG(ctx, sampleTable(), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestHeat(t *testing.T) {
	if heat(0, 30) != lowColor || heat(30, 30) != highColor || heat(15, 30) != midColor {
		t.Fatalf("heat endpoints wrong")
	}
	if heat(5, 0) != midColor {
		t.Fatalf("zero max should map to the midpoint")
	}
	if heat(-1, 10) != lowColor || heat(99, 10) != highColor {
		t.Fatalf("heat must clamp")
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("Bartholomew the Bold"); len([]rune(got)) != maxLabelLen {
		t.Fatalf("unexpected label %q", got)
	}
	if shorten(" Ann ") != "Ann" {
		t.Fatalf("short names must pass through")
	}
}
