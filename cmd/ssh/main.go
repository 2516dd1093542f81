package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/tomz197/balls/internal/config"
	"github.com/tomz197/balls/internal/draw"
	"github.com/tomz197/balls/internal/particle"
	"github.com/tomz197/balls/internal/sim"
	"github.com/tomz197/balls/internal/spawn"
	"github.com/tomz197/balls/internal/view"
)

func main() {
	cfg, _, err := config.Parse("balls-ssh", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger("ssh")

	if err := serve(cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// serve runs one shared simulation and an SSH server whose sessions all view it.
func serve(cfg config.Config, logger *log.Logger) error {
	workingDir, workErr := os.Getwd()
	if workErr != nil {
		logger.Warn("failed to get working directory", "err", workErr)
	}
	logger.Info("ssh config", "host", cfg.SSH.Host, "port", cfg.SSH.Port, "host_key", cfg.SSH.HostKey, "working_dir", workingDir)

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
	simCtx, cancelSim := context.WithCancel(ctx)
	defer cancelSim()

	if cfg.Path != "" {
		err := config.Follow(simCtx, cfg.Path, logger, func(next config.Config) {
			runner.SetRestitution(next.Restitution)
		})
		if err != nil {
			logger.Warn("config reload disabled", "err", err)
		}
	}

	// Shared simulation - viewed by all SSH sessions
	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(simCtx)
	}()

	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(cfg.SSH.Host, cfg.SSH.Port)),
		wish.WithMiddleware(
			viewMiddleware(simCtx, runner, logger),
			activeterm.Middleware(),
			logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel),
		),
		// Set TCP_NODELAY to reduce latency for key presses
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if cfg.SSH.HostKey != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.SSH.HostKey))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		return fmt.Errorf("ssh: create server: %w", err)
	}

	serveErr := make(chan error, 1)
	logger.Info("starting ssh server", "addr", s.Addr)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var result error
	simDone := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serveErr:
		result = fmt.Errorf("ssh: serve: %w", err)
	case err := <-runErr:
		result = err
		simDone = true
	}

	// Stopping the simulation ends every session's view loop.
	cancelSim()
	if !simDone {
		if err := <-runErr; err != nil && result == nil {
			result = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		result = errors.Join(result, fmt.Errorf("ssh: shutdown: %w", err))
	}
	return result
}

// viewMiddleware runs a view.Client for each session against the shared runner.
func viewMiddleware(simCtx context.Context, runner *sim.Runner, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			sessLog := logger.With("user", sess.User())
			sessLog.Info("new session", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)

			// Create a terminal size tracker that updates on window changes
			sizeTracker := newSizeTracker(pty.Window.Width, pty.Window.Height)
			go func() {
				for win := range winCh {
					sizeTracker.update(win.Width, win.Height)
				}
			}()

			ctx, cancel := context.WithCancel(sess.Context())
			defer cancel()
			stopOnShutdown := context.AfterFunc(simCtx, cancel)
			defer stopOnShutdown()

			client := view.NewClient(runner, bufio.NewReader(sess), sess, view.Options{
				TermSizeFunc: sizeTracker.getSize,
				Logger:       sessLog,
			})
			if err := client.Run(ctx); err != nil {
				sessLog.Warn("view error", "err", err)
			}

			sessLog.Info("session ended")
			next(sess)
		}
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

// Ensure sizeTracker.getSize satisfies draw.TermSizeFunc
var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
