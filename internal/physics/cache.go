package physics

import (
	"slices"

	"github.com/tomz197/balls/internal/particle"
)

// shiftFactor bounds insertion-sort work per entry before falling back to a full sort.
const shiftFactor = 4

// SortedCache keeps x-axis entries sorted by left bound across ticks.
//
// The first Update builds it from every live particle. Later updates refresh
// bounds in place and re-sort with insertion sort, which is O(n) when little
// moved since the previous tick. Particles added after the build are only seen
// once registered with Register.
type SortedCache struct {
	entries []Entry
	present []uint32 // Slot index -> generation held in entries, 0 if none
	built   bool

	// FullSorts counts updates that fell back to slices.SortFunc.
	FullSorts uint64
}

// NewSortedCache creates an empty, unbuilt cache.
func NewSortedCache() *SortedCache {
	return &SortedCache{}
}

// Built reports whether the first Update has run.
func (c *SortedCache) Built() bool {
	return c.built
}

// Len returns the number of entries.
func (c *SortedCache) Len() int {
	return len(c.entries)
}

// Entries returns the sorted entries. The slice is owned by the cache and is
// only valid until the next Update or Register.
func (c *SortedCache) Entries() []Entry {
	return c.entries
}

// Reset empties the cache; the next Update rebuilds it.
func (c *SortedCache) Reset() {
	c.entries = c.entries[:0]
	clear(c.present)
	c.built = false
}

// Update builds the cache on first use, otherwise refreshes every entry's
// bounds from the store, drops entries whose handle went stale and re-sorts.
func (c *SortedCache) Update(s *particle.Store) {
	if !c.built {
		c.build(s)
		return
	}

	kept := c.entries[:0]
	for _, e := range c.entries {
		p, ok := s.Get(e.Handle)
		if !ok {
			if int(e.Handle.Index) < len(c.present) && c.present[e.Handle.Index] == e.Handle.Gen {
				c.present[e.Handle.Index] = 0
			}
			continue
		}
		e.Left, e.Right = p.Left(), p.Right()
		kept = append(kept, e)
	}
	clear(c.entries[len(kept):])
	c.entries = kept

	if !insertionSort(c.entries, shiftFactor*len(c.entries)) {
		slices.SortFunc(c.entries, compareLeft)
		c.FullSorts++
	}
}

// Register adds a particle spawned after the cache was built, keeping the
// entries sorted. It is a no-op before the first Update, which picks up every
// live particle anyway, and for a handle already present.
func (c *SortedCache) Register(h particle.Handle, p *particle.Particle) {
	if !c.built || h.IsZero() {
		return
	}
	c.grow(int(h.Index) + 1)
	if c.present[h.Index] == h.Gen {
		return
	}
	c.present[h.Index] = h.Gen

	e := Entry{Handle: h, Left: p.Left(), Right: p.Right()}
	i, _ := slices.BinarySearchFunc(c.entries, e, compareLeft)
	c.entries = slices.Insert(c.entries, i, e)
}

func (c *SortedCache) build(s *particle.Store) {
	c.entries = c.entries[:0]
	c.grow(s.Slots())
	clear(c.present)
	s.Each(func(h particle.Handle, p *particle.Particle) {
		c.entries = append(c.entries, Entry{Handle: h, Left: p.Left(), Right: p.Right()})
		c.present[h.Index] = h.Gen
	})
	slices.SortFunc(c.entries, compareLeft)
	c.built = true
}

func (c *SortedCache) grow(n int) {
	if n > len(c.present) {
		c.present = append(c.present, make([]uint32, n-len(c.present))...)
	}
}

// insertionSort sorts e by left bound. It gives up and returns false once more
// than limit shifts were needed; e is then a permutation of its input.
func insertionSort(e []Entry, limit int) bool {
	shifts := 0
	for i := 1; i < len(e); i++ {
		cur := e[i]
		j := i
		for j > 0 && e[j-1].Left > cur.Left {
			e[j] = e[j-1]
			j--
		}
		shifts += i - j
		e[j] = cur
		if shifts > limit {
			return false
		}
	}
	return true
}

// Cached is sweep-and-prune over a SortedCache.
type Cached struct {
	Cache *SortedCache

	prepared bool
}

func (*Cached) Kind() Kind { return KindCached }

// Prepare refreshes the cache. It must run after integration so the bounds
// match the positions Detect tests against.
func (c *Cached) Prepare(s *particle.Store) {
	c.Cache.Update(s)
	c.prepared = true
}

// Detect sweeps the cached entries. If Prepare was not called since the last
// Detect the cache is refreshed first.
func (c *Cached) Detect(s *particle.Store, fn PairFunc) {
	if !c.prepared {
		c.Cache.Update(s)
	}
	c.prepared = false
	sweep(c.Cache.Entries(), s, fn)
}
