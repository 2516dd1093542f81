package draw

import (
	"bytes"
	"strings"
	"testing"
)

func countSet(c *Canvas) int {
	n := 0
	for y := 0; y < c.subPixelHeight; y++ {
		for x := 0; x < c.termWidth; x++ {
			if c.Pixel(x, y) != 0 {
				n++
			}
		}
	}
	return n
}

func TestFitWorldCentersOrigin(t *testing.T) {
	c := NewCanvas(80, 20) // 80x40 sub-pixels
	c.FitWorld(100, 100)

	if c.scale != 0.2 {
		t.Fatalf("scale = %v, want 0.2 (limited by height)", c.scale)
	}
	px, py := c.WorldToPixel(0, 0)
	if px != 40 || py != 20 {
		t.Errorf("origin at (%v, %v), want (40, 20)", px, py)
	}
	// y points up
	if _, py := c.WorldToPixel(0, 50); py != 10 {
		t.Errorf("y=50 maps to row %v, want 10", py)
	}
}

func TestFillCircle(t *testing.T) {
	c := NewCanvas(40, 20)
	c.FitWorld(20, 20) // one world unit per sub-pixel

	shade := ShadeIndex(0.5)
	c.FillCircle(0, 0, 5, shade)

	if got := c.Pixel(20, 20); got != shade {
		t.Errorf("center pixel = %d, want %d", got, shade)
	}
	if c.Pixel(20+6, 20) != 0 || c.Pixel(20, 20-7) != 0 {
		t.Errorf("pixels outside radius set")
	}
	// Area of a radius-5 disc is ~78.5 pixels.
	if n := countSet(c); n < 70 || n > 90 {
		t.Errorf("filled %d pixels, want about 78", n)
	}

	c.Clear()
	c.FillCircle(3.3, -2.2, 0.01, shade)
	if n := countSet(c); n != 1 {
		t.Errorf("tiny circle filled %d pixels, want 1", n)
	}
}

func TestFillCircleClipped(t *testing.T) {
	c := NewCanvas(10, 5)
	c.FitWorld(5, 5)
	c.FillCircle(100, 100, 3, 1)
	c.FillCircle(-5, 0, 3, 1)
	if n := countSet(c); n == 0 {
		t.Errorf("partially visible circle not drawn")
	}
}

func TestRenderOnlyChanges(t *testing.T) {
	c := NewCanvas(10, 5)
	c.FitWorld(5, 5)
	c.FillCircle(0, 0, 2, ShadeIndex(0))

	var first bytes.Buffer
	c.Render(&first)
	if !strings.ContainsRune(first.String(), BlockFull) {
		t.Fatalf("first render has no full blocks: %q", first.String())
	}

	var second bytes.Buffer
	c.Render(&second)
	if second.Len() != 0 {
		t.Errorf("unchanged frame emitted %d bytes", second.Len())
	}

	c.ForceRedraw()
	var third bytes.Buffer
	c.Render(&third)
	if third.String() != first.String() {
		t.Errorf("forced redraw differs from first render")
	}

	c.Clear()
	var cleared bytes.Buffer
	c.Render(&cleared)
	if strings.ContainsRune(cleared.String(), BlockFull) || cleared.Len() == 0 {
		t.Errorf("clearing should emit blanks only")
	}
}

func TestShadeIndex(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-1, 1},
		{0, 1},
		{1, ShadeLevels},
		{2, ShadeLevels},
	}
	for _, c := range cases {
		if got := ShadeIndex(c.in); got != c.want {
			t.Errorf("ShadeIndex(%v) = %d, want %d", c.in, got, c.want)
		}
	}
	if r, _, b := ShadeColor(0).RGB255(); r != 255 || b != 0 {
		t.Errorf("gradient start = %d,%d", r, b)
	}
}

func TestClampSize(t *testing.T) {
	w, h, col, row := ClampSize(200, 60, 160, 50)
	if w != 160 || h != 50 || col != 20 || row != 5 {
		t.Errorf("ClampSize = %d %d %d %d", w, h, col, row)
	}
}
