package net

import (
	"errors"

	"github.com/born-ml/layernet/internal/layer"
)

// ErrStructural reports an operation the network's current shape cannot
// support: an empty network, a missing input layer, a final layer without the
// required capability, or buffers of the wrong size.
var ErrStructural = errors.New("network structure error")

// ErrConfiguration is layer.ErrConfiguration, re-exported for callers that
// only import this package.
var ErrConfiguration = layer.ErrConfiguration
