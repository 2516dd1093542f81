package physics

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/tomz197/balls/internal/particle"
)

type pair struct{ i, j int }

// recordPairs runs d and returns its pairs normalized to i < j, sorted.
func recordPairs(t *testing.T, d BroadPhase, s *particle.Store) []pair {
	t.Helper()
	var pairs []pair
	seen := make(map[pair]bool)
	d.Detect(s, func(i, j int) {
		if i == j {
			t.Fatalf("%s: self pair %d", d.Kind(), i)
		}
		if i > j {
			i, j = j, i
		}
		p := pair{i, j}
		if seen[p] {
			t.Fatalf("%s: pair %v reported twice", d.Kind(), p)
		}
		seen[p] = true
		pairs = append(pairs, p)
	})
	slices.SortFunc(pairs, func(a, b pair) int {
		if a.i != b.i {
			return a.i - b.i
		}
		return a.j - b.j
	})
	return pairs
}

func randomStore(t *testing.T, rng *rand.Rand, n int, half, minR, maxR float64) *particle.Store {
	t.Helper()
	s := particle.NewStore(n)
	for i := 0; i < n; i++ {
		r := minR + rng.Float64()*(maxR-minR)
		p := particle.Particle{
			Pos:    cp.Vector{X: (rng.Float64()*2 - 1) * half, Y: (rng.Float64()*2 - 1) * half},
			Vel:    cp.Vector{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10},
			Mass:   1,
			Radius: r,
		}
		if _, err := s.Add(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return s
}

func TestDetectorsAgree(t *testing.T) {
	cases := []struct {
		name       string
		n          int
		half       float64
		minR, maxR float64
	}{
		{"empty", 0, 10, 1, 1},
		{"single", 1, 10, 1, 1},
		{"sparse", 200, 500, 1, 4},
		{"dense", 300, 60, 2.5, 5},
		{"mixed_sizes", 150, 100, 0.5, 20},
		{"stacked", 50, 0.5, 1, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rng := rand.New(rand.NewChaCha8([32]byte{byte(c.n), 7}))
			s := randomStore(t, rng, c.n, c.half, c.minR, c.maxR)

			want := recordPairs(t, Naive{}, s)
			for _, k := range Kinds()[1:] {
				got := recordPairs(t, NewBroadPhase(k, nil), s)
				if !slices.Equal(got, want) {
					t.Errorf("%s found %d pairs, naive found %d", k, len(got), len(want))
				}
			}
		})
	}
}

func TestDetectorsAgreeFarApart(t *testing.T) {
	cases := []struct {
		name string
		far  float64
	}{
		{"1e9", 1e9},
		{"1e12", 1e12},
		{"1e19", 1e19},
		{"negative_1e19", -1e19},
		{"1e300", 1e300},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := particle.NewStore(4)
			for _, pos := range []cp.Vector{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: c.far, Y: c.far}, {X: c.far + 1, Y: c.far}} {
				if _, err := s.Add(particle.Particle{Pos: pos, Mass: 1, Radius: 1}); err != nil {
					t.Fatalf("add: %v", err)
				}
			}

			want := recordPairs(t, Naive{}, s)
			for _, k := range Kinds()[1:] {
				got := recordPairs(t, NewBroadPhase(k, nil), s)
				if !slices.Equal(got, want) {
					t.Errorf("%s found %v, naive found %v", k, got, want)
				}
			}
		})
	}
}

func TestDetectorsAgreeBeyondFloatRange(t *testing.T) {
	s := particle.NewStore(3)
	for _, x := range []float64{-1e308, 1e308, 1e308 + 1} {
		if _, err := s.Add(particle.Particle{Pos: cp.Vector{X: x}, Mass: 1, Radius: 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	want := recordPairs(t, Naive{}, s)
	if got := recordPairs(t, &Grid{}, s); !slices.Equal(got, want) {
		t.Errorf("grid found %v, naive found %v", got, want)
	}
}

func TestDetectorsAgreeAfterMotion(t *testing.T) {
	rng := rand.New(rand.NewChaCha8([32]byte{42}))
	s := randomStore(t, rng, 400, 150, 2.5, 5)
	b := Bounds{HalfWidth: 150, HalfHeight: 150}

	detectors := make([]BroadPhase, 0, len(Kinds()))
	for _, k := range Kinds() {
		detectors = append(detectors, NewBroadPhase(k, nil))
	}

	for tick := 0; tick < 30; tick++ {
		Integrate(s, 1.0/64)
		Wrap(s, b)

		want := recordPairs(t, detectors[0], s)
		for _, d := range detectors[1:] {
			if p, ok := d.(Preparer); ok {
				p.Prepare(s)
			}
			if got := recordPairs(t, d, s); !slices.Equal(got, want) {
				t.Fatalf("tick %d: %s found %d pairs, naive found %d", tick, d.Kind(), len(got), len(want))
			}
		}
	}
}

func TestDetectorsSkipRemoved(t *testing.T) {
	s, hs := storeOf(t,
		body(0, 0, 0, 0, 1, 1),
		body(1, 0, 0, 0, 1, 1),
		body(0.5, 0.5, 0, 0, 1, 1),
	)
	cache := NewSortedCache()
	cache.Update(s)
	s.Remove(hs[2])

	for _, k := range Kinds() {
		got := recordPairs(t, NewBroadPhase(k, cache), s)
		if want := []pair{{0, 1}}; !slices.Equal(got, want) {
			t.Errorf("%s: pairs = %v, want %v", k, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if k, err := ParseKind("SWEEP"); err != nil || k != KindSweep {
		t.Errorf("ParseKind is case sensitive: %v, %v", k, err)
	}
	if _, err := ParseKind("octree"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func BenchmarkDetect(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		rng := rand.New(rand.NewChaCha8([32]byte{1}))
		s := particle.NewStore(n)
		half := 4 * float64(n) / 10
		for i := 0; i < n; i++ {
			_, _ = s.Add(particle.Particle{
				Pos:    cp.Vector{X: (rng.Float64()*2 - 1) * half, Y: (rng.Float64()*2 - 1) * half},
				Mass:   1,
				Radius: 2.5 + rng.Float64()*2.5,
			})
		}

		for _, k := range Kinds() {
			if k == KindNaive && n > 1000 {
				continue
			}
			d := NewBroadPhase(k, nil)
			b.Run(fmt.Sprintf("%s/Particles-%d", k, n), func(b *testing.B) {
				count := 0
				for i := 0; i < b.N; i++ {
					if p, ok := d.(Preparer); ok {
						p.Prepare(s)
					}
					d.Detect(s, func(i, j int) { count++ })
				}
				b.ReportMetric(float64(count)/float64(b.N), "pairs/op")
			})
		}
	}
}
