package particle

import "strconv"

// Handle is a stable reference to a particle slot.
// Gen detects references to a slot that has since been freed and reused.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero handle, which never refers to a particle.
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.Index), 10) + "v" + strconv.FormatUint(uint64(h.Gen), 10)
}

// slotMeta tracks generation and liveness for a slot.
// Generations start at 1 so the zero Handle is always invalid.
type slotMeta struct {
	gen   uint32
	alive bool
}

// Store is an arena of particles. Slots are reused through a free list;
// records are kept contiguous so phases can iterate by slot index.
type Store struct {
	particles []Particle
	meta      []slotMeta
	free      []uint32
	live      int
}

// NewStore creates a store with room for capacity particles before growing.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		particles: make([]Particle, 0, capacity),
		meta:      make([]slotMeta, 0, capacity),
	}
}

// Add validates p and inserts it, returning its handle.
func (s *Store) Add(p Particle) (Handle, error) {
	if err := p.Validate(); err != nil {
		return Handle{}, err
	}

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.particles[idx] = p
		s.meta[idx].alive = true
	} else {
		idx = uint32(len(s.particles))
		s.particles = append(s.particles, p)
		s.meta = append(s.meta, slotMeta{gen: 1, alive: true})
	}
	s.live++
	return Handle{Index: idx, Gen: s.meta[idx].gen}, nil
}

// Remove frees the slot referenced by h. Returns false if h is stale.
func (s *Store) Remove(h Handle) bool {
	if !s.Valid(h) {
		return false
	}
	m := &s.meta[h.Index]
	m.alive = false
	m.gen++
	if m.gen == 0 {
		m.gen = 1
	}
	s.particles[h.Index] = Particle{}
	s.free = append(s.free, h.Index)
	s.live--
	return true
}

// Valid reports whether h refers to a live particle.
func (s *Store) Valid(h Handle) bool {
	if h.IsZero() || int(h.Index) >= len(s.meta) {
		return false
	}
	m := s.meta[h.Index]
	return m.alive && m.gen == h.Gen
}

// Get returns the particle referenced by h.
func (s *Store) Get(h Handle) (*Particle, bool) {
	if !s.Valid(h) {
		return nil, false
	}
	return &s.particles[h.Index], true
}

// Slots returns the number of slots, live or free. Valid slot indices are [0, Slots()).
func (s *Store) Slots() int {
	return len(s.particles)
}

// Live returns the number of live particles.
func (s *Store) Live() int {
	return s.live
}

// Alive reports whether slot i holds a live particle.
func (s *Store) Alive(i int) bool {
	return s.meta[i].alive
}

// At returns the particle in slot i. Callers check Alive first.
func (s *Store) At(i int) *Particle {
	return &s.particles[i]
}

// HandleAt returns the handle for slot i.
func (s *Store) HandleAt(i int) Handle {
	return Handle{Index: uint32(i), Gen: s.meta[i].gen}
}

// Each calls fn for every live particle in slot order.
func (s *Store) Each(fn func(h Handle, p *Particle)) {
	for i := range s.particles {
		if s.meta[i].alive {
			fn(Handle{Index: uint32(i), Gen: s.meta[i].gen}, &s.particles[i])
		}
	}
}
