//go:build debug

package physics

import "github.com/tomz197/balls/internal/particle"

// assertBody panics on a particle that would make the impulse maths divide by zero.
func assertBody(p *particle.Particle) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
