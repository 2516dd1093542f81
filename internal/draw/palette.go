package draw

import (
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Ends of the ball gradient, indexed by particle shade.
var (
	GradientStart = colorful.Color{R: 1, G: 0, B: 0}
	GradientEnd   = colorful.Color{R: 0.2, G: 0.2, B: 1}
)

// ShadeLevels is the number of distinct colors the terminal canvas uses.
const ShadeLevels = 16

// ShadeColor maps t in [0,1] onto the ball gradient.
func ShadeColor(t float64) colorful.Color {
	return GradientStart.BlendRgb(GradientEnd, clamp01(t)).Clamped()
}

// ShadeIndex quantizes t in [0,1] to a palette index in [1, ShadeLevels].
// Index 0 means "no pixel".
func ShadeIndex(t float64) uint8 {
	return uint8(1 + int(clamp01(t)*(ShadeLevels-1)+0.5))
}

// Precomputed 24-bit SGR sequences per palette index.
var (
	fgCodes [ShadeLevels + 1]string
	bgCodes [ShadeLevels + 1]string
)

func init() {
	for i := 1; i <= ShadeLevels; i++ {
		r, g, b := ShadeColor(float64(i-1) / (ShadeLevels - 1)).RGB255()
		rgb := strconv.Itoa(int(r)) + ";" + strconv.Itoa(int(g)) + ";" + strconv.Itoa(int(b)) + "m"
		fgCodes[i] = "\033[38;2;" + rgb
		bgCodes[i] = "\033[48;2;" + rgb
	}
}

func clamp01(t float64) float64 {
	if !(t > 0) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
