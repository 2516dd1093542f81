package physics

import (
	"cmp"
	"slices"

	"github.com/tomz197/balls/internal/particle"
)

// Entry is a particle's projection onto the x axis.
type Entry struct {
	Handle particle.Handle
	Left   float64
	Right  float64
}

func compareLeft(a, b Entry) int {
	return cmp.Compare(a.Left, b.Left)
}

// Sweep is stateless sweep-and-prune on the x axis. The entry list is rebuilt
// and sorted from scratch every tick; only the backing array is reused.
type Sweep struct {
	buf []Entry
}

func (*Sweep) Kind() Kind { return KindSweep }

// Detect projects, sorts (O(n log n)) and sweeps (O(n + m)).
func (sw *Sweep) Detect(s *particle.Store, fn PairFunc) {
	sw.buf = sw.buf[:0]
	for i, n := 0, s.Slots(); i < n; i++ {
		if !s.Alive(i) {
			continue
		}
		p := s.At(i)
		sw.buf = append(sw.buf, Entry{Handle: s.HandleAt(i), Left: p.Left(), Right: p.Right()})
	}
	slices.SortFunc(sw.buf, compareLeft)
	sweep(sw.buf, s, fn)
}

// sweep walks entries sorted by left bound. For each entry it scans the
// following ones until a left bound passes its right bound: nothing after that
// can overlap on x.
func sweep(sorted []Entry, s *particle.Store, fn PairFunc) {
	for i := range sorted {
		a := &sorted[i]
		ai := int(a.Handle.Index)
		// O(1) at best; O(m/n) on average; O(n) at worst
		for k := i + 1; k < len(sorted); k++ {
			b := &sorted[k]
			if b.Left > a.Right {
				break
			}
			bi := int(b.Handle.Index)
			p1, p2 := s.At(ai), s.At(bi)
			if CirclesOverlap(p1.Pos, p1.Radius, p2.Pos, p2.Radius) {
				fn(ai, bi)
			}
		}
	}
}
