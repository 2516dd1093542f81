package sim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
)

// DefaultRate is the physics tick rate in Hz when none is configured.
const DefaultRate = 64

// degenerateLogInterval limits how often coincident contacts are reported.
const degenerateLogInterval = time.Second

// Ball is the render view of a particle.
type Ball struct {
	X, Y   float64
	Radius float64
	Shade  float64
}

// Snapshot is an immutable view of the simulation after a tick.
type Snapshot struct {
	Balls       []Ball
	Bounds      physics.Bounds
	Tick        uint64
	Collisions  uint64
	Degenerate  uint64
	BroadPhase  physics.Kind
	Restitution float64
	Paused      bool
	TPS         float64 // Measured ticks per second
}

// CommandType identifies a Runner command.
type CommandType int

const (
	CmdSpawnProjectile CommandType = iota
	CmdTogglePause
	CmdSetBroadPhase
	CmdSetRestitution
)

// Command is a request applied by the Runner between ticks.
type Command struct {
	Type        CommandType
	BroadPhase  physics.Kind // For CmdSetBroadPhase
	Restitution float64      // For CmdSetRestitution
}

// Runner drives a Context at a fixed tick rate. Run's goroutine is the only one
// touching the Context; others send commands and read snapshots.
type Runner struct {
	sim        *Context
	rate       int
	commands   chan Command
	snapshot   atomic.Pointer[Snapshot]
	projectile func() particle.Particle
	logger     *log.Logger

	paused bool

	// Degenerate contact reporting
	reportedDegenerate uint64
	lastReport         time.Time

	// Tick rate measurement
	windowStart time.Time
	windowTicks int
	tps         float64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRate sets the tick rate in Hz.
func WithRate(hz int) RunnerOption {
	return func(r *Runner) {
		if hz > 0 {
			r.rate = hz
		}
	}
}

// WithProjectile sets the factory used by CmdSpawnProjectile.
// It is called from the Run goroutine only.
func WithProjectile(fn func() particle.Particle) RunnerOption {
	return func(r *Runner) {
		r.projectile = fn
	}
}

// WithRunnerLogger sets the logger. Defaults to log.Default().
func WithRunnerLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner for c and publishes an initial snapshot.
func NewRunner(c *Context, opts ...RunnerOption) *Runner {
	r := &Runner{
		sim:      c,
		rate:     DefaultRate,
		commands: make(chan Command, 64),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.publish()
	return r
}

// Rate returns the tick rate in Hz.
func (r *Runner) Rate() int {
	return r.rate
}

// Run ticks until ctx is cancelled or a step fails. Returns nil on cancel.
func (r *Runner) Run(ctx context.Context) error {
	tickTime := time.Second / time.Duration(r.rate)
	dt := 1 / float64(r.rate)

	r.windowStart = time.Now()
	r.logger.Info("simulation started", "balls", r.sim.Store.Live(), "rate", r.rate, "broad_phase", r.sim.BroadPhase())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("simulation stopped", "tick", r.sim.Tick())
			return nil
		case <-timer.C:
		}

		frameStart := time.Now()
		if err := r.tick(dt, frameStart); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < tickTime {
			timer.Reset(tickTime - elapsed)
		} else {
			timer.Reset(0)
		}
	}
}

// tick runs one iteration: commands, step and snapshot.
func (r *Runner) tick(dt float64, now time.Time) error {
	r.processCommands()

	if !r.paused {
		if err := r.sim.Step(dt); err != nil {
			return fmt.Errorf("sim: tick %d: %w", r.sim.Tick(), err)
		}
		r.windowTicks++
		r.reportDegenerate(now)
	}

	if d := now.Sub(r.windowStart); d >= time.Second {
		r.tps = float64(r.windowTicks) / d.Seconds()
		r.windowTicks = 0
		r.windowStart = now
	}

	r.publish()
	return nil
}

// Send queues a command. Returns false if the queue is full and the command
// was dropped.
func (r *Runner) Send(cmd Command) bool {
	select {
	case r.commands <- cmd:
		return true
	default:
		// Command channel full, drop command
		return false
	}
}

// SpawnProjectile queues a projectile launch.
func (r *Runner) SpawnProjectile() bool {
	return r.Send(Command{Type: CmdSpawnProjectile})
}

// TogglePause queues a pause/resume.
func (r *Runner) TogglePause() bool {
	return r.Send(Command{Type: CmdTogglePause})
}

// SetBroadPhase queues a detector switch.
func (r *Runner) SetBroadPhase(k physics.Kind) bool {
	return r.Send(Command{Type: CmdSetBroadPhase, BroadPhase: k})
}

// SetRestitution queues a restitution change.
func (r *Runner) SetRestitution(e float64) bool {
	return r.Send(Command{Type: CmdSetRestitution, Restitution: e})
}

// Snapshot returns the latest published snapshot. Never nil.
func (r *Runner) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// processCommands applies all pending commands.
func (r *Runner) processCommands() {
	for {
		select {
		case cmd := <-r.commands:
			r.apply(cmd)
		default:
			return
		}
	}
}

func (r *Runner) apply(cmd Command) {
	switch cmd.Type {
	case CmdSpawnProjectile:
		if r.projectile == nil {
			return
		}
		h, err := r.sim.Spawn(r.projectile())
		if err != nil {
			r.logger.Warn("projectile rejected", "err", err)
			return
		}
		r.logger.Debug("projectile launched", "handle", h.String(), "tick", r.sim.Tick())
	case CmdTogglePause:
		r.paused = !r.paused
		r.logger.Debug("pause toggled", "paused", r.paused)
	case CmdSetBroadPhase:
		r.sim.SetBroadPhase(cmd.BroadPhase)
	case CmdSetRestitution:
		if err := r.sim.SetRestitution(cmd.Restitution); err != nil {
			r.logger.Warn("restitution rejected", "err", err)
			return
		}
		r.logger.Info("restitution changed", "restitution", cmd.Restitution)
	}
}

// reportDegenerate warns when coincident contacts occurred since the last report.
func (r *Runner) reportDegenerate(now time.Time) {
	total := r.sim.Stats.Degenerate
	if total == r.reportedDegenerate || now.Sub(r.lastReport) < degenerateLogInterval {
		return
	}
	r.logger.Warn("coincident centers resolved along fallback normal",
		"new", total-r.reportedDegenerate, "total", total, "tick", r.sim.Tick())
	r.reportedDegenerate = total
	r.lastReport = now
}

// publish stores a fresh snapshot. Snapshots are never modified after this.
func (r *Runner) publish() {
	s := r.sim
	balls := make([]Ball, 0, s.Store.Live())
	s.Store.Each(func(_ particle.Handle, p *particle.Particle) {
		balls = append(balls, Ball{X: p.Pos.X, Y: p.Pos.Y, Radius: p.Radius, Shade: p.Shade})
	})
	r.snapshot.Store(&Snapshot{
		Balls:       balls,
		Bounds:      s.Bounds,
		Tick:        s.Tick(),
		Collisions:  s.Stats.Collisions,
		Degenerate:  s.Stats.Degenerate,
		BroadPhase:  s.BroadPhase(),
		Restitution: s.Restitution(),
		Paused:      r.paused,
		TPS:         r.tps,
	})
}
