// Package particle provides the arena that owns ball records.
package particle

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
)

// ErrInvalidParticle is returned when a particle has non-positive mass or radius.
var ErrInvalidParticle = errors.New("particle: mass and radius must be positive")

// Particle is a point-mass circle.
type Particle struct {
	Pos    cp.Vector // Center position (world units, y up)
	Vel    cp.Vector // Velocity (world units/sec)
	Mass   float64
	Radius float64
	Shade  float64 // Render gradient parameter in [0,1], ignored by physics
}

// Left returns the left edge of the particle's x-axis interval.
func (p *Particle) Left() float64 {
	return p.Pos.X - p.Radius
}

// Right returns the right edge of the particle's x-axis interval.
func (p *Particle) Right() float64 {
	return p.Pos.X + p.Radius
}

// Validate reports whether mass and radius satisfy the store invariant.
func (p *Particle) Validate() error {
	if !(p.Mass > 0) || !(p.Radius > 0) {
		return fmt.Errorf("%w (mass=%g radius=%g)", ErrInvalidParticle, p.Mass, p.Radius)
	}
	return nil
}
