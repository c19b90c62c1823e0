package layer

import (
	"math"
	"math/rand"
)

// xavier fills weights from U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func xavier(weights []float32, fanIn, fanOut int) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range weights {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		weights[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
}
