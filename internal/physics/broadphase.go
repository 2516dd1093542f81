package physics

import (
	"fmt"
	"strings"

	"github.com/tomz197/balls/internal/particle"
)

// PairFunc receives the slot indices of two overlapping particles.
// It may move either particle; detectors keep going with the updated state.
type PairFunc func(i, j int)

// BroadPhase finds overlapping particle pairs and hands each to fn exactly once.
type BroadPhase interface {
	Kind() Kind
	Detect(s *particle.Store, fn PairFunc)
}

// Preparer is implemented by detectors that keep per-tick state which must be
// refreshed after integration and before Detect.
type Preparer interface {
	Prepare(s *particle.Store)
}

// Kind identifies a broad-phase algorithm.
type Kind int

const (
	KindNaive  Kind = iota // All pairs, O(n^2)
	KindSweep              // Sweep-and-prune, sorted from scratch each tick
	KindCached             // Sweep-and-prune over a persistent sorted cache
	KindGrid               // Uniform grid, 3x3 neighborhood
)

var kindNames = [...]string{
	KindNaive:  "naive",
	KindSweep:  "sweep",
	KindCached: "cached",
	KindGrid:   "grid",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a broad-phase name to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(name, n) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("physics: unknown broad phase %q (want one of %s)", name, strings.Join(kindNames[:], ", "))
}

// Kinds returns all broad-phase kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindNaive, KindSweep, KindCached, KindGrid}
}

// NewBroadPhase creates a detector of the given kind. The cached detector reads
// from cache, which may be shared with other owners; a nil cache gets a private one.
func NewBroadPhase(k Kind, cache *SortedCache) BroadPhase {
	switch k {
	case KindSweep:
		return &Sweep{}
	case KindCached:
		if cache == nil {
			cache = NewSortedCache()
		}
		return &Cached{Cache: cache}
	case KindGrid:
		return &Grid{}
	default:
		return Naive{}
	}
}
