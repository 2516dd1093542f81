package physics

import (
	"errors"
	"fmt"

	"github.com/tomz197/balls/internal/particle"
)

// ErrInvalidBounds is returned for non-positive or non-finite simulation bounds.
var ErrInvalidBounds = errors.New("physics: bounds must be positive")

// Bounds is the simulation area, centered on the origin.
type Bounds struct {
	HalfWidth  float64
	HalfHeight float64
}

// BoundsFromSize returns bounds for a width x height area centered on the origin.
func BoundsFromSize(width, height float64) Bounds {
	return Bounds{HalfWidth: width / 2, HalfHeight: height / 2}
}

// Validate checks that both half extents are positive.
func (b Bounds) Validate() error {
	// Written as !(x > 0) so NaN is rejected too.
	if !(b.HalfWidth > 0) || !(b.HalfHeight > 0) {
		return fmt.Errorf("%w (half-width=%g half-height=%g)", ErrInvalidBounds, b.HalfWidth, b.HalfHeight)
	}
	return nil
}

// Integrate advances every live particle by vel*dt (explicit Euler).
func Integrate(s *particle.Store, dt float64) {
	for i, n := 0, s.Slots(); i < n; i++ {
		if !s.Alive(i) {
			continue
		}
		p := s.At(i)
		p.Pos.X += p.Vel.X * dt
		p.Pos.Y += p.Vel.Y * dt
	}
}

// Wrap teleports particles that are fully outside the bounds to the opposite edge.
// A particle leaves once its whole disc is offscreen, and re-enters just offscreen.
func Wrap(s *particle.Store, b Bounds) {
	for i, n := 0, s.Slots(); i < n; i++ {
		if !s.Alive(i) {
			continue
		}
		p := s.At(i)
		wrapAxis(&p.Pos.X, b.HalfWidth, p.Radius)
		wrapAxis(&p.Pos.Y, b.HalfHeight, p.Radius)
	}
}

func wrapAxis(v *float64, half, r float64) {
	if *v > half+r {
		*v = -half - r
	} else if *v < -half-r {
		*v = half + r
	}
}
