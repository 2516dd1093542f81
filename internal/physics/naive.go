package physics

import "github.com/tomz197/balls/internal/particle"

// Naive compares every particle with every other particle.
type Naive struct{}

func (Naive) Kind() Kind { return KindNaive }

// Detect runs the O(n^2) all-pairs test.
func (Naive) Detect(s *particle.Store, fn PairFunc) {
	n := s.Slots()
	for i := 0; i < n; i++ {
		if !s.Alive(i) {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !s.Alive(j) {
				continue
			}
			// Re-read i each time: fn may have moved it.
			p1, p2 := s.At(i), s.At(j)
			if CirclesOverlap(p1.Pos, p1.Radius, p2.Pos, p2.Radius) {
				fn(i, j)
			}
		}
	}
}
