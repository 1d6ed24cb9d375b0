package stage

import (
	"image/color"

	"gocv.io/x/gocv"
)

// scalarOf converts an RGBA color to a BGR scalar.
func scalarOf(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

// blend writes strength*effect + (1-strength)*orig into effect.
func blend(orig gocv.Mat, effect *gocv.Mat, strength float64) {
	if strength >= 1 {
		return
	}
	if strength < 0 {
		strength = 0
	}
	gocv.AddWeighted(*effect, strength, orig, 1-strength, 0, effect)
}
