package tensor

import (
	"fmt"
	"math"
	"strings"
)

// Activation selects the element-wise non-linearity a layer applies to its output.
type Activation int

// Supported activations.
const (
	Linear Activation = iota
	ReLU
	Tanh
	ScaledTanh
	Sigmoid
)

// LeCun's scaled tanh: 1.7159 * tanh(2x/3).
const (
	scaledTanhOuter = 1.7159
	scaledTanhInner = 2.0 / 3.0
)

// ParseActivation maps a name (case-insensitive) to an Activation.
// The empty string selects Linear.
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return Linear, nil
	case "relu":
		return ReLU, nil
	case "tanh":
		return Tanh, nil
	case "scaledtanh":
		return ScaledTanh, nil
	case "sigmoid":
		return Sigmoid, nil
	default:
		return Linear, fmt.Errorf("unknown activation %q", name)
	}
}

// String returns the canonical lowercase name.
func (a Activation) String() string {
	switch a {
	case Linear:
		return "linear"
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	case ScaledTanh:
		return "scaledtanh"
	case Sigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// Apply evaluates the activation at x.
func (a Activation) Apply(x float32) float32 {
	switch a {
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case Tanh:
		return float32(math.Tanh(float64(x)))
	case ScaledTanh:
		return float32(scaledTanhOuter * math.Tanh(scaledTanhInner*float64(x)))
	case Sigmoid:
		return float32(1.0 / (1.0 + math.Exp(-float64(x))))
	default:
		return x
	}
}

// Derivative returns d(activation)/dx expressed in terms of the activated
// output y, which is what layers keep after the forward pass.
func (a Activation) Derivative(y float32) float32 {
	switch a {
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case Tanh:
		return 1 - y*y
	case ScaledTanh:
		return float32(scaledTanhInner * (scaledTanhOuter - float64(y)*float64(y)/scaledTanhOuter))
	case Sigmoid:
		return y * (1 - y)
	default:
		return 1
	}
}
