// Package sim owns the simulation state and runs the per-tick pipeline.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
)

// ErrInvalidTimestep is returned by Step for a non-positive or non-finite dt.
var ErrInvalidTimestep = errors.New("sim: timestep must be positive and finite")

// Context owns everything a tick reads or writes: particles, the active
// broad phase, the sorted cache, the resolver and its counters.
type Context struct {
	Store  *particle.Store
	Bounds physics.Bounds
	Stats  physics.Stats

	cache    *physics.SortedCache
	detector physics.BroadPhase
	resolver *physics.Resolver
	onPair   physics.PairFunc
	tick     uint64
	logger   *log.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithBroadPhase selects the initial broad-phase detector.
func WithBroadPhase(k physics.Kind) Option {
	return func(c *Context) {
		c.detector = physics.NewBroadPhase(k, c.cache)
	}
}

// WithRestitution sets the coefficient of restitution. New validates it.
func WithRestitution(e float64) Option {
	return func(c *Context) {
		c.resolver.Restitution = e
	}
}

// WithCapacity preallocates room for n particles.
func WithCapacity(n int) Option {
	return func(c *Context) {
		c.Store = particle.NewStore(n)
	}
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// New creates an empty simulation over bounds. The default broad phase is the
// cached sweep with restitution physics.DefaultRestitution.
func New(bounds physics.Bounds, opts ...Option) (*Context, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	c := &Context{
		Store:  particle.NewStore(0),
		Bounds: bounds,
		cache:  physics.NewSortedCache(),
		logger: log.Default(),
	}
	c.resolver = physics.NewResolver(physics.DefaultRestitution, &c.Stats)
	c.detector = physics.NewBroadPhase(physics.KindCached, c.cache)
	for _, opt := range opts {
		opt(c)
	}
	if err := physics.ValidateRestitution(c.resolver.Restitution); err != nil {
		return nil, err
	}

	c.onPair = func(i, j int) {
		c.resolver.Resolve(c.Store.At(i), c.Store.At(j))
	}
	return c, nil
}

// Spawn adds p to the store and registers it with the sorted cache.
func (c *Context) Spawn(p particle.Particle) (particle.Handle, error) {
	h, err := c.Store.Add(p)
	if err != nil {
		return particle.Handle{}, err
	}
	c.cache.Register(h, c.Store.At(int(h.Index)))
	return h, nil
}

// Remove deletes the particle referenced by h. The cache drops its entry on
// the next update.
func (c *Context) Remove(h particle.Handle) bool {
	return c.Store.Remove(h)
}

// Step advances the simulation by dt seconds:
// integrate, prepare the broad phase, detect and resolve, wrap.
func (c *Context) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w (got %g)", ErrInvalidTimestep, dt)
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}

	physics.Integrate(c.Store, dt)
	if p, ok := c.detector.(physics.Preparer); ok {
		p.Prepare(c.Store)
	}
	c.detector.Detect(c.Store, c.onPair)
	physics.Wrap(c.Store, c.Bounds)

	c.tick++
	return nil
}

// SetBroadPhase switches the detector. Takes effect on the next Step.
func (c *Context) SetBroadPhase(k physics.Kind) {
	if c.detector.Kind() == k {
		return
	}
	c.logger.Debug("switching broad phase", "from", c.detector.Kind(), "to", k)
	if c.detector.Kind() == physics.KindCached {
		// Rebuilt on the next cached tick; until then Spawn skips registration
		c.cache.Reset()
	}
	c.detector = physics.NewBroadPhase(k, c.cache)
}

// BroadPhase returns the active detector kind.
func (c *Context) BroadPhase() physics.Kind {
	return c.detector.Kind()
}

// SetRestitution changes the coefficient of restitution.
func (c *Context) SetRestitution(e float64) error {
	if err := physics.ValidateRestitution(e); err != nil {
		return err
	}
	c.resolver.Restitution = e
	return nil
}

// Restitution returns the coefficient of restitution.
func (c *Context) Restitution() float64 {
	return c.resolver.Restitution
}

// Tick returns the number of completed steps.
func (c *Context) Tick() uint64 {
	return c.tick
}
