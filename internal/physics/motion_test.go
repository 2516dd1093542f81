package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/tomz197/balls/internal/particle"
)

func storeOf(t *testing.T, ps ...particle.Particle) (*particle.Store, []particle.Handle) {
	t.Helper()
	s := particle.NewStore(len(ps))
	hs := make([]particle.Handle, len(ps))
	for i, p := range ps {
		h, err := s.Add(p)
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		hs[i] = h
	}
	return s, hs
}

func TestIntegrate(t *testing.T) {
	s, hs := storeOf(t,
		body(0, 0, 2, -4, 1, 1),
		body(10, 10, 0, 0, 1, 1),
	)
	s.Remove(hs[1])

	Integrate(s, 0.5)

	p, _ := s.Get(hs[0])
	if p.Pos != (cp.Vector{X: 1, Y: -2}) {
		t.Errorf("pos = %v, want (1,-2)", p.Pos)
	}
}

func TestWrapExact(t *testing.T) {
	b := Bounds{HalfWidth: 100, HalfHeight: 50}
	const r = 3
	eps := 1e-7

	cases := []struct {
		name string
		in   cp.Vector
		want cp.Vector
	}{
		{"right", cp.Vector{X: 100 + r + eps, Y: 0}, cp.Vector{X: -100 - r, Y: 0}},
		{"left", cp.Vector{X: -100 - r - eps, Y: 7}, cp.Vector{X: 100 + r, Y: 7}},
		{"top", cp.Vector{X: 1, Y: 50 + r + eps}, cp.Vector{X: 1, Y: -50 - r}},
		{"bottom", cp.Vector{X: 1, Y: -50 - r - eps}, cp.Vector{X: 1, Y: 50 + r}},
		{"corner", cp.Vector{X: 200, Y: -200}, cp.Vector{X: -100 - r, Y: 50 + r}},
		{"on_edge", cp.Vector{X: 100 + r, Y: -50 - r}, cp.Vector{X: 100 + r, Y: -50 - r}},
		{"inside", cp.Vector{X: 12.5, Y: -3}, cp.Vector{X: 12.5, Y: -3}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, hs := storeOf(t, particle.Particle{Pos: c.in, Mass: 1, Radius: r})
			Wrap(s, b)
			p, _ := s.Get(hs[0])
			if p.Pos != c.want {
				t.Errorf("wrap(%v) = %v, want %v", c.in, p.Pos, c.want)
			}
		})
	}
}

func TestBoundsValidate(t *testing.T) {
	if err := BoundsFromSize(640, 480).Validate(); err != nil {
		t.Fatalf("valid bounds rejected: %v", err)
	}
	for _, b := range []Bounds{
		{0, 1},
		{1, -1},
		{math.NaN(), 1},
	} {
		if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
			t.Errorf("%+v: got %v, want ErrInvalidBounds", b, err)
		}
	}
}
