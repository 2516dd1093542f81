package view

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/sim"
)

type fakeSim struct {
	mu          sync.Mutex
	snap        *sim.Snapshot
	projectiles int
	pauses      int
	kinds       []physics.Kind
}

func (f *fakeSim) Snapshot() *sim.Snapshot { return f.snap }

func (f *fakeSim) SpawnProjectile() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projectiles++
	return true
}

func (f *fakeSim) TogglePause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return true
}

func (f *fakeSim) SetBroadPhase(k physics.Kind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, k)
	return true
}

func newFake() *fakeSim {
	return &fakeSim{snap: &sim.Snapshot{
		Balls:      []sim.Ball{{X: 0, Y: 0, Radius: 10, Shade: 0.5}},
		Bounds:     physics.Bounds{HalfWidth: 100, HalfHeight: 100},
		Tick:       42,
		BroadPhase: physics.KindCached,
	}}
}

func fixedSize(w, h int) func() (int, int, error) {
	return func() (int, int, error) { return w, h, nil }
}

func TestClientForwardsKeys(t *testing.T) {
	f := newFake()
	var out bytes.Buffer
	c := NewClient(f, bufio.NewReader(strings.NewReader("\r 4xq")), &out, Options{
		TermSizeFunc: fixedSize(60, 20),
		FPS:          200,
		Logger:       log.New(io.Discard),
	})

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not quit")
	}

	if f.projectiles != 1 || f.pauses != 1 {
		t.Errorf("projectiles=%d pauses=%d, want 1 each", f.projectiles, f.pauses)
	}
	if len(f.kinds) != 1 || f.kinds[0] != physics.KindGrid {
		t.Errorf("broad phase requests = %v, want [grid]", f.kinds)
	}

	s := out.String()
	if !strings.Contains(s, "tick 42") || !strings.Contains(s, "cached") {
		t.Errorf("HUD missing from output")
	}
	if !strings.ContainsRune(s, '█') {
		t.Errorf("ball not drawn")
	}
}

func TestClientStopsOnCancel(t *testing.T) {
	f := newFake()
	r, w := io.Pipe()
	defer w.Close()

	c := NewClient(f, bufio.NewReader(r), io.Discard, Options{
		TermSizeFunc: fixedSize(40, 12),
		Logger:       log.New(io.Discard),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not stop on cancel")
	}
}
