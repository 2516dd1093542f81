// Package spawn creates the initial ball populations and the smash projectile.
package spawn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/jakecoffman/cp"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/sim"
)

// ErrUnknownScenario is returned by Scenario for an unregistered name.
var ErrUnknownScenario = errors.New("spawn: unknown scenario")

// Ball size and speed ranges for the random scenarios.
const (
	MinRadius = 2.5
	MaxRadius = 5.0
	MaxSpeed  = 100.0
)

// Projectile parameters.
const (
	ProjectileRadius = 20.0
	ProjectileMass   = 10.0
	ProjectileSpeed  = 250.0
	projectileRing   = 1.2 // Launch distance as a multiple of the smaller half extent
)

// Populator generates n particles inside b.
type Populator func(rng *rand.Rand, n int, b physics.Bounds) []particle.Particle

var scenarios = map[string]Populator{
	"many":    Many,
	"smash":   Smash,
	"collide": Collide,
}

// Names returns the scenario names in a stable order.
func Names() []string {
	return []string{"many", "smash", "collide"}
}

// Scenario looks up a populator by name.
func Scenario(name string) (Populator, error) {
	p, ok := scenarios[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// NewRand returns a deterministic ChaCha8 generator for seed.
func NewRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return rand.New(rand.NewChaCha8(key))
}

// Populate spawns the particles generated by pop into c.
func Populate(c *sim.Context, pop Populator, rng *rand.Rand, n int) error {
	for i, p := range pop(rng, n, c.Bounds) {
		if _, err := c.Spawn(p); err != nil {
			return fmt.Errorf("spawn: particle %d: %w", i, err)
		}
	}
	return nil
}

// randomBody returns a particle with random radius, matching mass and a random
// velocity of up to MaxSpeed. Position is left to the caller.
func randomBody(rng *rand.Rand) particle.Particle {
	u := rng.Float64()
	radius := MinRadius + u*(MaxRadius-MinRadius)
	mass := (radius / MaxRadius) * (radius / MaxRadius)

	speed := rng.Float64() * MaxSpeed
	dir := rng.Float64() * 2 * math.Pi
	return particle.Particle{
		Vel:    cp.Vector{X: speed * math.Cos(dir), Y: speed * math.Sin(dir)},
		Mass:   mass,
		Radius: radius,
	}
}

// Many scatters n moving balls uniformly over the bounds. Shade follows the
// normalized distance from the center.
func Many(rng *rand.Rand, n int, b physics.Bounds) []particle.Particle {
	out := make([]particle.Particle, 0, n)
	for range n {
		p := randomBody(rng)
		ux, uy := 2*rng.Float64()-1, 2*rng.Float64()-1
		p.Pos = cp.Vector{X: ux * b.HalfWidth, Y: uy * b.HalfHeight}
		p.Shade = math.Hypot(ux, uy) / math.Sqrt2
		out = append(out, p)
	}
	return out
}

// Smash packs n resting balls into a disc of radius 2/3 of the half width,
// uniformly by area.
func Smash(rng *rand.Rand, n int, b physics.Bounds) []particle.Particle {
	discRadius := 2 * b.HalfWidth / 3
	out := make([]particle.Particle, 0, n)
	for range n {
		p := randomBody(rng)
		p.Vel = cp.Vector{}

		norm := math.Sqrt(rng.Float64())
		angle := rng.Float64() * 2 * math.Pi
		p.Pos = cp.Vector{X: discRadius * norm * math.Cos(angle), Y: discRadius * norm * math.Sin(angle)}
		p.Shade = norm
		out = append(out, p)
	}
	return out
}

// deflectOffset is the trajectory offset giving a 45 degree deflection for two
// balls of radius r: 2r*sin(22.5deg).
const deflectOffset = 0.7654

// Collide returns two fixed pairs: one head-on, one offset for a 45 degree
// deflection. n and rng are ignored.
func Collide(_ *rand.Rand, _ int, _ physics.Bounds) []particle.Particle {
	const (
		r     = 10.0
		speed = 100.0
		off   = deflectOffset * r
	)
	mk := func(x, y, dir, shade float64) particle.Particle {
		return particle.Particle{
			Pos:    cp.Vector{X: x, Y: y},
			Vel:    cp.Vector{X: dir * speed},
			Mass:   1,
			Radius: r,
			Shade:  shade,
		}
	}
	return []particle.Particle{
		// Horizontal collision
		mk(-100, 100, 1, 0.2),
		mk(100, 100, -1, 0.8),
		// Offset collision
		mk(-100, -100-off/2, 1, 0.2),
		mk(100, -100+off/2, -1, 0.8),
	}
}

// Projectile returns a heavy ball launched at the origin from a random point
// just outside the smaller half extent.
func Projectile(rng *rand.Rand, b physics.Bounds) particle.Particle {
	ring := projectileRing * min(b.HalfWidth, b.HalfHeight)
	angle := rng.Float64() * 2 * math.Pi
	dir := cp.Vector{X: math.Cos(angle), Y: math.Sin(angle)}
	return particle.Particle{
		Pos:    dir.Mult(ring),
		Vel:    dir.Mult(-ProjectileSpeed),
		Mass:   ProjectileMass,
		Radius: ProjectileRadius,
		Shade:  0,
	}
}

// Build creates a simulation over b and populates it with n particles from the
// named scenario. The returned generator continues the same seeded sequence and
// can drive Projectile.
func Build(b physics.Bounds, scenario string, n int, seed uint64, opts ...sim.Option) (*sim.Context, *rand.Rand, error) {
	pop, err := Scenario(scenario)
	if err != nil {
		return nil, nil, err
	}
	c, err := sim.New(b, append([]sim.Option{sim.WithCapacity(n)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	rng := NewRand(seed)
	if err := Populate(c, pop, rng, n); err != nil {
		return nil, nil, err
	}
	return c, rng, nil
}
