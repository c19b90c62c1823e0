package tensor

import "fmt"

// ConvGeometry describes a stride-1 2D convolution over a batch.
//
// Layouts (row-major):
//   - input:   [Batch, InPlanes, InSize, InSize]
//   - filters: [OutPlanes, InPlanes, FilterSize, FilterSize]
//   - output:  [Batch, OutPlanes, OutSize, OutSize]
type ConvGeometry struct {
	Batch      int
	InPlanes   int
	InSize     int
	OutPlanes  int
	FilterSize int
	Padding    int
}

// OutSize returns the output image size: InSize + 2*Padding - FilterSize + 1.
func (g ConvGeometry) OutSize() int {
	return g.InSize + 2*g.Padding - g.FilterSize + 1
}

// InputLen returns the number of input values for the whole batch.
func (g ConvGeometry) InputLen() int {
	return g.Batch * g.InPlanes * g.InSize * g.InSize
}

// OutputLen returns the number of output values for the whole batch.
func (g ConvGeometry) OutputLen() int {
	out := g.OutSize()
	return g.Batch * g.OutPlanes * out * out
}

// FilterLen returns the number of filter weights.
func (g ConvGeometry) FilterLen() int {
	return g.OutPlanes * g.InPlanes * g.FilterSize * g.FilterSize
}

// Validate checks that the geometry yields a non-empty output.
func (g ConvGeometry) Validate() error {
	if g.Batch <= 0 || g.InPlanes <= 0 || g.InSize <= 0 || g.OutPlanes <= 0 || g.FilterSize <= 0 {
		return fmt.Errorf("conv geometry has non-positive dimension: %+v", g)
	}
	if g.Padding < 0 {
		return fmt.Errorf("conv geometry has negative padding %d", g.Padding)
	}
	if g.OutSize() <= 0 {
		return fmt.Errorf("conv geometry: filter %d larger than padded input %d", g.FilterSize, g.InSize+2*g.Padding)
	}
	return nil
}

// PoolGeometry describes non-overlapping max pooling over a batch.
//
// Layouts: input [Batch, Planes, InSize, InSize], output [Batch, Planes, OutSize, OutSize].
// With PadZeros a partial window at the border still produces an output.
type PoolGeometry struct {
	Batch    int
	Planes   int
	InSize   int
	PoolSize int
	PadZeros bool
}

// OutSize returns the pooled image size.
func (g PoolGeometry) OutSize() int {
	if g.PadZeros {
		return (g.InSize + g.PoolSize - 1) / g.PoolSize
	}
	return g.InSize / g.PoolSize
}

// OutputLen returns the number of output values for the whole batch.
func (g PoolGeometry) OutputLen() int {
	out := g.OutSize()
	return g.Batch * g.Planes * out * out
}
