package serialization

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// marshalCheckpoint encodes cp as a Checkpoint message.
func marshalCheckpoint(cp *Checkpoint) []byte {
	var b []byte
	if cp.Epoch != 0 {
		b = protowire.AppendTag(b, fieldEpoch, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(cp.Epoch))
	}
	if cp.Trainer != "" {
		b = protowire.AppendTag(b, fieldTrainer, protowire.BytesType)
		b = protowire.AppendString(b, cp.Trainer)
	}
	if !cp.CreatedAt.IsZero() {
		b = protowire.AppendTag(b, fieldCreatedUnix, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(cp.CreatedAt.Unix()))
	}
	for i := range cp.Layers {
		b = protowire.AppendTag(b, fieldLayers, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalLayer(&cp.Layers[i]))
	}
	return b
}

func marshalLayer(lw *LayerWeights) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(lw.Index))
	b = protowire.AppendTag(b, fieldKind, protowire.BytesType)
	b = protowire.AppendString(b, lw.Kind)
	if len(lw.Weights) > 0 {
		b = protowire.AppendTag(b, fieldWeights, protowire.BytesType)
		b = protowire.AppendBytes(b, packFloats(lw.Weights))
	}
	if len(lw.Bias) > 0 {
		b = protowire.AppendTag(b, fieldBias, protowire.BytesType)
		b = protowire.AppendBytes(b, packFloats(lw.Bias))
	}
	return b
}

func packFloats(values []float32) []byte {
	b := make([]byte, 0, 4*len(values))
	for _, v := range values {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

// unmarshalCheckpoint decodes a Checkpoint message. Unknown fields are skipped.
func unmarshalCheckpoint(b []byte) (*Checkpoint, error) {
	cp := &Checkpoint{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed("checkpoint tag", n)
		}
		b = b[n:]

		switch {
		case num == fieldEpoch && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed("epoch", n)
			}
			cp.Epoch = int(v)
			b = b[n:]
		case num == fieldTrainer && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, malformed("trainer", n)
			}
			cp.Trainer = v
			b = b[n:]
		case num == fieldCreatedUnix && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed("created_unix", n)
			}
			cp.CreatedAt = time.Unix(int64(v), 0).UTC()
			b = b[n:]
		case num == fieldLayers && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed("layers", n)
			}
			lw, err := unmarshalLayer(v)
			if err != nil {
				return nil, err
			}
			cp.Layers = append(cp.Layers, lw)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed("unknown field", n)
			}
			b = b[n:]
		}
	}
	return cp, nil
}

func unmarshalLayer(b []byte) (LayerWeights, error) {
	var lw LayerWeights
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return lw, malformed("layer tag", n)
		}
		b = b[n:]

		switch {
		case num == fieldIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return lw, malformed("index", n)
			}
			lw.Index = int(v)
			b = b[n:]
		case num == fieldKind && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return lw, malformed("kind", n)
			}
			lw.Kind = v
			b = b[n:]
		case (num == fieldWeights || num == fieldBias) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return lw, malformed("floats", n)
			}
			values, err := unpackFloats(v)
			if err != nil {
				return lw, err
			}
			if num == fieldWeights {
				lw.Weights = append(lw.Weights, values...)
			} else {
				lw.Bias = append(lw.Bias, values...)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return lw, malformed("unknown field", n)
			}
			b = b[n:]
		}
	}
	return lw, nil
}

func unpackFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: packed floats have %d bytes", ErrMalformed, len(b))
	}
	values := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, malformed("fixed32", n)
		}
		values = append(values, math.Float32frombits(v))
		b = b[n:]
	}
	return values, nil
}

func malformed(what string, n int) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformed, what, protowire.ParseError(n))
}
