package sim

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
)

var quiet = log.New(io.Discard)

func newContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	c, err := New(physics.Bounds{HalfWidth: 100, HalfHeight: 100}, opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func ball(x, y, vx, vy float64) particle.Particle {
	return particle.Particle{
		Pos:    cp.Vector{X: x, Y: y},
		Vel:    cp.Vector{X: vx, Y: vy},
		Mass:   1,
		Radius: 1,
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(physics.Bounds{HalfWidth: 0, HalfHeight: 1}); !errors.Is(err, physics.ErrInvalidBounds) {
		t.Errorf("bad bounds: got %v", err)
	}
	if _, err := New(physics.Bounds{HalfWidth: 1, HalfHeight: 1}, WithRestitution(2)); !errors.Is(err, physics.ErrInvalidRestitution) {
		t.Errorf("bad restitution: got %v", err)
	}
}

func TestStepRejectsBadInput(t *testing.T) {
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c := newContext(t)
		if err := c.Step(dt); !errors.Is(err, ErrInvalidTimestep) {
			t.Errorf("Step(%v) = %v, want ErrInvalidTimestep", dt, err)
		}
		if c.Tick() != 0 {
			t.Errorf("rejected step advanced tick")
		}
	}

	c := newContext(t)
	c.Bounds.HalfHeight = -1
	if err := c.Step(0.1); !errors.Is(err, physics.ErrInvalidBounds) {
		t.Errorf("Step with bad bounds = %v, want ErrInvalidBounds", err)
	}
}

func TestStepSeparatesPair(t *testing.T) {
	for _, k := range physics.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			c := newContext(t, WithBroadPhase(k))
			ha, _ := c.Spawn(ball(0, 0, 0, 0))
			hb, _ := c.Spawn(ball(1.5, 0, 0, 0))

			if err := c.Step(1.0 / 64); err != nil {
				t.Fatalf("step: %v", err)
			}

			a, _ := c.Store.Get(ha)
			b, _ := c.Store.Get(hb)
			if a.Pos != (cp.Vector{X: -0.25, Y: 0}) || b.Pos != (cp.Vector{X: 1.75, Y: 0}) {
				t.Errorf("positions = %v %v", a.Pos, b.Pos)
			}
			if c.Stats.Collisions != 1 || c.Tick() != 1 {
				t.Errorf("collisions=%d tick=%d", c.Stats.Collisions, c.Tick())
			}
		})
	}
}

func TestStepConservesMomentum(t *testing.T) {
	for _, k := range physics.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			c := newContext(t, WithBroadPhase(k))
			rng := rand.New(rand.NewChaCha8([32]byte{9}))
			for i := 0; i < 300; i++ {
				r := 2.5 + rng.Float64()*2.5
				_, err := c.Spawn(particle.Particle{
					Pos:    cp.Vector{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100},
					Vel:    cp.Vector{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100},
					Mass:   (r / 5) * (r / 5),
					Radius: r,
				})
				if err != nil {
					t.Fatalf("spawn: %v", err)
				}
			}

			momentum := func() cp.Vector {
				var sum cp.Vector
				c.Store.Each(func(_ particle.Handle, p *particle.Particle) {
					sum = sum.Add(p.Vel.Mult(p.Mass))
				})
				return sum
			}

			before := momentum()
			for i := 0; i < 20; i++ {
				if err := c.Step(1.0 / 64); err != nil {
					t.Fatalf("step: %v", err)
				}
			}
			after := momentum()

			if math.Abs(after.X-before.X) > 1e-6 || math.Abs(after.Y-before.Y) > 1e-6 {
				t.Errorf("momentum drifted: %v -> %v", before, after)
			}
			if c.Stats.Collisions == 0 {
				t.Errorf("expected collisions in a dense field")
			}
		})
	}
}

func TestSpawnAfterCacheBuilt(t *testing.T) {
	c := newContext(t, WithBroadPhase(physics.KindCached))
	_, _ = c.Spawn(ball(0, 0, 0, 0))
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}

	// Added after the first cache build; must still collide.
	_, _ = c.Spawn(ball(1, 0, 0, 0))
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if c.Stats.Collisions != 1 {
		t.Errorf("collisions = %d, want 1", c.Stats.Collisions)
	}
}

func TestRemove(t *testing.T) {
	c := newContext(t)
	_, _ = c.Spawn(ball(0, 0, 0, 0))
	h, _ := c.Spawn(ball(1, 0, 0, 0))
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	c.Stats.Reset()

	if !c.Remove(h) {
		t.Fatalf("remove failed")
	}
	if c.Remove(h) {
		t.Fatalf("second remove should fail")
	}
	// Reuse the slot far away; no collision may involve the removed ball.
	_, _ = c.Spawn(ball(50, 50, 0, 0))
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if c.Stats.Collisions != 0 {
		t.Errorf("collisions = %d, want 0", c.Stats.Collisions)
	}
}

func TestSpawnRejectsInvalid(t *testing.T) {
	c := newContext(t)
	if _, err := c.Spawn(particle.Particle{Mass: 1}); !errors.Is(err, particle.ErrInvalidParticle) {
		t.Errorf("got %v, want ErrInvalidParticle", err)
	}
}

func TestSetBroadPhaseAndRestitution(t *testing.T) {
	c := newContext(t)
	if c.BroadPhase() != physics.KindCached {
		t.Errorf("default broad phase = %s", c.BroadPhase())
	}
	c.SetBroadPhase(physics.KindGrid)
	if c.BroadPhase() != physics.KindGrid {
		t.Errorf("broad phase = %s, want grid", c.BroadPhase())
	}

	if err := c.SetRestitution(1.5); !errors.Is(err, physics.ErrInvalidRestitution) {
		t.Errorf("got %v", err)
	}
	if c.Restitution() != physics.DefaultRestitution {
		t.Errorf("rejected restitution was applied")
	}
	if err := c.SetRestitution(1); err != nil || c.Restitution() != 1 {
		t.Errorf("SetRestitution(1) = %v, restitution %v", err, c.Restitution())
	}
}

func TestSetBroadPhaseResetsCache(t *testing.T) {
	c := newContext(t)
	for i := 0; i < 3; i++ {
		if _, err := c.Spawn(ball(float64(10*i), 0, 1, 0)); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !c.cache.Built() || c.cache.Len() != 3 {
		t.Fatalf("cache after cached step: built=%v len=%d", c.cache.Built(), c.cache.Len())
	}

	c.SetBroadPhase(physics.KindGrid)
	if c.cache.Built() || c.cache.Len() != 0 {
		t.Fatalf("cache not reset when leaving cached: built=%v len=%d", c.cache.Built(), c.cache.Len())
	}
	if _, err := c.Spawn(ball(50, 50, 0, 0)); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}

	c.SetBroadPhase(physics.KindCached)
	if err := c.Step(0.01); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !c.cache.Built() || c.cache.Len() != 4 {
		t.Errorf("cache after switching back: built=%v len=%d, want 4 entries", c.cache.Built(), c.cache.Len())
	}
}
