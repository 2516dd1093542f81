package physics

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/tomz197/balls/internal/particle"
)

// DefaultRestitution is the coefficient of restitution used when none is configured.
const DefaultRestitution = 0.5

// MinSeparation is the distance below which two centers are treated as coincident.
const MinSeparation = 1e-9

// ErrInvalidRestitution is returned for a restitution outside [0, 1].
var ErrInvalidRestitution = errors.New("physics: restitution must be in [0, 1]")

// fallbackNormal is used when centers coincide and the direction is undefined.
var fallbackNormal = cp.Vector{X: 1, Y: 0}

// ValidateRestitution checks that e is in [0, 1].
func ValidateRestitution(e float64) error {
	if !(e >= 0 && e <= 1) {
		return fmt.Errorf("%w (got %g)", ErrInvalidRestitution, e)
	}
	return nil
}

// Resolver performs the narrow phase for a candidate pair: exact overlap test,
// positional de-penetration and impulse response.
type Resolver struct {
	Restitution float64
	Epsilon     float64 // Centers closer than this are coincident; 0 means MinSeparation
	Stats       *Stats
}

// NewResolver creates a resolver writing to stats.
func NewResolver(restitution float64, stats *Stats) *Resolver {
	return &Resolver{Restitution: restitution, Epsilon: MinSeparation, Stats: stats}
}

// Resolve separates a and b and exchanges impulse along the contact normal.
// Returns false, leaving both untouched, if the circles do not overlap.
//
// Position correction is split equally regardless of mass. Velocity is only
// changed when the pair is approaching along the normal.
func (r *Resolver) Resolve(a, b *particle.Particle) bool {
	assertBody(a)
	assertBody(b)

	delta := b.Pos.Sub(a.Pos)
	distance := delta.Length()
	radii := a.Radius + b.Radius
	if distance >= radii {
		return false
	}

	eps := r.Epsilon
	if eps <= 0 {
		eps = MinSeparation
	}

	var normal cp.Vector
	if distance < eps {
		normal = fallbackNormal
		if r.Stats != nil {
			r.Stats.Degenerate++
		}
		distance = 0
	} else {
		normal = cp.Vector{X: delta.X / distance, Y: delta.Y / distance}
	}

	if r.Stats != nil {
		r.Stats.Collisions++
	}

	// Resolve overlap
	correction := normal.Mult((radii - distance) / 2)
	a.Pos = a.Pos.Sub(correction)
	b.Pos = b.Pos.Add(correction)

	relativeVelocity := b.Vel.Sub(a.Vel).Dot(normal)
	if relativeVelocity > 0 {
		// Already moving apart
		return true
	}

	inverseMassSum := 1/a.Mass + 1/b.Mass
	j := -(1 + r.Restitution) * relativeVelocity / inverseMassSum
	impulse := normal.Mult(j)

	a.Vel = a.Vel.Sub(cp.Vector{X: impulse.X / a.Mass, Y: impulse.Y / a.Mass})
	b.Vel = b.Vel.Add(cp.Vector{X: impulse.X / b.Mass, Y: impulse.Y / b.Mass})
	return true
}
