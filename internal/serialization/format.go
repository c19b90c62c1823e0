package serialization

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Format constants.
const (
	MagicBytes      = "LNET"
	FormatVersion   = 1
	ChecksumSize    = 32                                 // SHA-256
	FixedHeaderSize = len(MagicBytes) + 4 + ChecksumSize // magic + version + checksum
	MaxPayloadSize  = 1 << 30
)

// Field numbers of the Checkpoint message.
const (
	fieldEpoch       protowire.Number = 1
	fieldTrainer     protowire.Number = 2
	fieldCreatedUnix protowire.Number = 3
	fieldLayers      protowire.Number = 4
)

// Field numbers of the LayerWeights message.
const (
	fieldIndex   protowire.Number = 1
	fieldKind    protowire.Number = 2
	fieldWeights protowire.Number = 3
	fieldBias    protowire.Number = 4
)

// Checkpoint is the content of a weight file.
type Checkpoint struct {
	Epoch     int            // Epochs trained when the file was written
	Trainer   string         // Trainer description, informational only
	CreatedAt time.Time      // Second resolution
	Layers    []LayerWeights // Weight-bearing layers in network order
}

// LayerWeights holds one layer's parameters.
type LayerWeights struct {
	Index   int    // Position in the network
	Kind    string // Config kind, e.g. "conv" or "fc"
	Weights []float32
	Bias    []float32 // nil when the layer has no bias
}
