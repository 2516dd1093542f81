package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tomz197/balls/internal/config"
	"github.com/tomz197/balls/internal/draw"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/sim"
	"github.com/tomz197/balls/internal/spawn"
)

const windowScale = 1.0 // Screen pixels per world unit

var kindKeys = []ebiten.Key{ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4}

// Game draws runner snapshots into an ebiten window.
type Game struct {
	ctx    context.Context
	runner *sim.Runner
	width  int
	height int
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.runner.SpawnProjectile()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.runner.TogglePause()
	}
	kinds := physics.Kinds()
	for i, k := range kindKeys {
		if i < len(kinds) && inpututil.IsKeyJustPressed(k) {
			g.runner.SetBroadPhase(kinds[i])
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	snap := g.runner.Snapshot()
	cx, cy := float64(g.width)/2, float64(g.height)/2

	for _, b := range snap.Balls {
		// World y points up, screen y points down
		sx := cx + b.X*windowScale
		sy := cy - b.Y*windowScale
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), float32(b.Radius*windowScale), draw.ShadeColor(b.Shade), true)
	}

	state := "running"
	if snap.Paused {
		state = "paused"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"tick %d  %s  tps %.0f  fps %.0f\nballs %d  %s  e=%.2f  collisions %d\n[enter] shoot [space] pause [1-4] broad phase [q] quit",
		snap.Tick, state, snap.TPS, ebiten.ActualFPS(),
		len(snap.Balls), snap.BroadPhase, snap.Restitution, snap.Collisions,
	))
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

func main() {
	cfg, _, err := config.Parse("balls-window", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger("window")

	if err := run(cfg, logger); err != nil {
		logger.Error("window failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	c, rng, err := spawn.Build(cfg.Bounds(), cfg.Scenario, cfg.Balls, cfg.Seed,
		sim.WithBroadPhase(cfg.Kind()),
		sim.WithRestitution(cfg.Restitution),
		sim.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	runner := sim.NewRunner(c,
		sim.WithRate(cfg.PhysicsRate),
		sim.WithProjectile(func() particle.Particle { return spawn.Projectile(rng, c.Bounds) }),
		sim.WithRunnerLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Path != "" {
		err := config.Follow(ctx, cfg.Path, logger, func(next config.Config) {
			runner.SetRestitution(next.Restitution)
		})
		if err != nil {
			logger.Warn("config reload disabled", "err", err)
		}
	}

	runErr := make(chan error, 1)
	go func() {
		err := runner.Run(ctx)
		cancel() // Close the window if the simulation fails
		runErr <- err
	}()

	g := &Game{
		ctx:    ctx,
		runner: runner,
		width:  int(2 * c.Bounds.HalfWidth * windowScale),
		height: int(2 * c.Bounds.HalfHeight * windowScale),
	}
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle("balls")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	logger.Info("window started", "balls", c.Store.Live(), "scenario", cfg.Scenario, "broad_phase", c.BroadPhase())
	gameErr := ebiten.RunGame(g)
	if errors.Is(gameErr, ebiten.Termination) {
		gameErr = nil
	}
	cancel()
	return errors.Join(gameErr, <-runErr)
}
