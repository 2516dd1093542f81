// Package view renders simulation snapshots to a terminal and forwards key
// presses to the simulation runner.
package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/draw"
	"github.com/tomz197/balls/internal/input"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/sim"
)

// Client rendering
const (
	TargetFPS     = 60
	MaxTermWidth  = 240
	MaxTermHeight = 80
	hudRows       = 2
)

// Sim is the part of sim.Runner a client drives.
type Sim interface {
	Snapshot() *sim.Snapshot
	SpawnProjectile() bool
	TogglePause() bool
	SetBroadPhase(k physics.Kind) bool
}

// Compile-time check that sim.Runner implements Sim.
var _ Sim = (*sim.Runner)(nil)

// Options configures the client.
type Options struct {
	TermSizeFunc draw.TermSizeFunc
	FPS          int
	Logger       *log.Logger
}

// Client handles rendering and input for a single terminal.
type Client struct {
	sim          Sim
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates HUD text for chunked output
	writer       io.Writer
	inputStream  *input.Stream
	termSizeFunc draw.TermSizeFunc
	frameTime    time.Duration
	logger       *log.Logger
	running      bool
}

// NewClient creates a client reading keys from r and drawing to w.
func NewClient(s Sim, r *bufio.Reader, w io.Writer, opts Options) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = TargetFPS
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		sim:          s,
		canvas:       draw.NewCanvas(0, 0),
		chunkWriter:  draw.NewChunkWriter(w, 0, 0),
		writer:       w,
		inputStream:  input.StartStream(r),
		termSizeFunc: termSizeFunc,
		frameTime:    time.Second / time.Duration(fps),
		logger:       logger,
	}
}

// Run draws frames until the user quits, the input closes or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	c.running = true
	for c.running {
		frameStart := time.Now()

		c.processInput()
		c.updateScreen()

		if err := c.drawFrame(); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		wait := max(c.frameTime-elapsed, 0)
		select {
		case <-ctx.Done():
			c.running = false
		case <-time.After(wait):
		}
	}

	draw.ClearScreen(c.writer)
	return nil
}

// processInput forwards key presses to the simulation.
func (c *Client) processInput() {
	in := input.ReadInput(c.inputStream)

	if in.Enter {
		c.sim.SpawnProjectile()
	}
	if in.Space {
		c.sim.TogglePause()
	}
	if kinds := physics.Kinds(); in.Number >= 1 && in.Number <= len(kinds) {
		k := kinds[in.Number-1]
		c.logger.Debug("broad phase requested", "kind", k)
		c.sim.SetBroadPhase(k)
	}
	if in.Quit || in.Closed {
		c.running = false
	}
}

// updateScreen handles terminal resize, clamping to max render resolution.
// On actual size changes, clears the terminal to remove residual pixels
// outside the new canvas area.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}
	width, height, offsetCol, offsetRow := draw.ClampSize(termWidth, termHeight-hudRows, MaxTermWidth, MaxTermHeight)

	if width != c.canvas.TerminalWidth() || height != c.canvas.TerminalHeight() ||
		offsetCol != c.canvas.OffsetCol() || offsetRow != c.canvas.OffsetRow() {
		c.chunkWriter.ClearScreen()
		c.canvas.ForceRedraw()
	}

	c.canvas.Resize(width, height)
	c.canvas.SetOffset(offsetCol, offsetRow)
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
}

// drawFrame draws the latest snapshot and the HUD.
func (c *Client) drawFrame() error {
	snap := c.sim.Snapshot()

	c.canvas.Clear()
	c.canvas.FitWorld(snap.Bounds.HalfWidth, snap.Bounds.HalfHeight)
	for _, b := range snap.Balls {
		c.canvas.FillCircle(b.X, b.Y, b.Radius, draw.ShadeIndex(b.Shade))
	}

	c.canvas.Render(c.chunkWriter)
	c.canvas.RenderBorder(c.chunkWriter)
	c.drawHUD(snap)

	return c.chunkWriter.Flush()
}

// drawHUD writes the status and key help lines below the canvas.
func (c *Client) drawHUD(s *sim.Snapshot) {
	row := c.canvas.TerminalHeight() + 1
	if c.canvas.OffsetRow() > 0 {
		row++ // Below the border
	}

	state := fmt.Sprintf("%.0f tps", s.TPS)
	if s.Paused {
		state = "paused"
	}
	c.chunkWriter.WriteLine(row, fmt.Sprintf("balls %d  tick %d  collisions %d  degenerate %d  %s  e=%.2f  %s",
		len(s.Balls), s.Tick, s.Collisions, s.Degenerate, s.BroadPhase, s.Restitution, state))
	c.chunkWriter.WriteLine(row+1, "q quit  enter projectile  space pause  1 naive  2 sweep  3 cached  4 grid")
}
