// Package physics implements motion, boundary wrapping, broad-phase collision
// detection and impulse-based collision response for circular particles.
package physics

import "github.com/jakecoffman/cp"

// Distance calculates the Euclidean distance between two points.
func Distance(a, b cp.Vector) float64 {
	return b.Sub(a).Length()
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(a, b cp.Vector) float64 {
	return b.Sub(a).LengthSq()
}

// CirclesOverlap checks if two circles strictly overlap (touching is not a collision).
func CirclesOverlap(a cp.Vector, ra float64, b cp.Vector, rb float64) bool {
	minDist := ra + rb
	return DistanceSquared(a, b) < minDist*minDist
}
