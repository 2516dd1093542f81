package physics

// Stats counts collision events. Only the Resolver writes to it.
type Stats struct {
	Collisions uint64 // Resolved overlapping pairs
	Degenerate uint64 // Pairs with (near) coincident centers
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	*s = Stats{}
}
