package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/config"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/sim"
	"github.com/tomz197/balls/internal/spawn"
	"github.com/tomz197/balls/internal/view"
	"golang.org/x/term"
)

const usage = `usage: balls [flags]                      run the terminal viewer
       balls [flags] bench --time S|--frames N  run unthrottled and report fps

`

func main() {
	cfg, fs, err := config.Parse("balls", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", usage, err)
		os.Exit(2)
	}
	logger := cfg.Logger("balls")

	args := fs.Args()
	switch {
	case len(args) == 0:
		err = runViewer(cfg, logger)
	case args[0] == "bench":
		err = runBench(cfg, args[1:], logger)
	default:
		fmt.Fprintf(os.Stderr, "%sunknown command %q\n", usage, args[0])
		os.Exit(2)
	}
	if err != nil {
		logger.Error("balls failed", "err", err)
		os.Exit(1)
	}
}

// runViewer runs the simulation and draws it in the current terminal.
func runViewer(cfg config.Config, logger *log.Logger) error {
	// Log lines would corrupt the canvas; keep them only when stderr is redirected.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)
	}

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
		cancel() // Stop the viewer if the simulation fails
		runErr <- err
	}()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("balls: enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	client := view.NewClient(runner, bufio.NewReader(os.Stdin), os.Stdout, view.Options{Logger: logger})
	viewErr := client.Run(ctx)
	cancel()

	return errors.Join(viewErr, <-runErr)
}

// runBench steps the simulation as fast as possible for a fixed time or
// number of frames.
func runBench(cfg config.Config, args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	seconds := fs.Float64("time", 0, "run for this many seconds")
	frames := fs.Int("frames", 0, "run for this many frames")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*seconds > 0) == (*frames > 0) {
		return errors.New("bench: exactly one of --time or --frames is required")
	}

	c, _, err := spawn.Build(cfg.Bounds(), cfg.Scenario, cfg.Balls, cfg.Seed,
		sim.WithBroadPhase(cfg.Kind()),
		sim.WithRestitution(cfg.Restitution),
		sim.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Info("benchmark started", "balls", c.Store.Live(), "scenario", cfg.Scenario, "broad_phase", c.BroadPhase())

	dt := 1 / float64(cfg.PhysicsRate)
	limit := time.Duration(*seconds * float64(time.Second))
	start := time.Now()
	n := 0
	for {
		if *frames > 0 && n >= *frames {
			break
		}
		if limit > 0 && time.Since(start) >= limit {
			break
		}
		if err := c.Step(dt); err != nil {
			return err
		}
		n++
	}
	elapsed := time.Since(start).Seconds()

	benchReport(os.Stdout, elapsed, n, c.Stats)
	return nil
}

// benchReport writes the benchmark exit lines. Scripts parse the first one.
func benchReport(w io.Writer, elapsed float64, frames int, stats physics.Stats) {
	fmt.Fprintf(w, "Stopping the app at %.2f seconds after %.0f frames, %.2f fps\n", elapsed, float64(frames), float64(frames)/elapsed)
	fmt.Fprintf(w, "collisions %d, degenerate %d\n", stats.Collisions, stats.Degenerate)
}
