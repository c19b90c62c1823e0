package cpu

import (
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

// Conv2D performs a stride-1 zero-padded 2D convolution using im2col.
//
// Input:   [batch, inPlanes, inSize, inSize]
// Filters: [outPlanes, inPlanes, filterSize, filterSize]
// Output:  [batch, outPlanes, outSize, outSize]
//
// Algorithm, per batch item:
//  1. Im2col: input [C, H, W] -> col [C*K*K, outSize*outSize]
//  2. GEMM:   filters [F, C*K*K] @ col -> output [F, outSize*outSize]
//
// The filter matrix is already row-major [F, C*K*K], and the GEMM result is
// already in [F, H_out, W_out] layout, so no reshuffle is required.
func (cpu *CPUBackend) Conv2D(output, input, filters []float32, g tensor.ConvGeometry) {
	checkLen("conv2d", "input", len(input), g.InputLen())
	checkLen("conv2d", "filters", len(filters), g.FilterLen())
	checkLen("conv2d", "output", len(output), g.OutputLen())

	colRows := g.InPlanes * g.FilterSize * g.FilterSize
	outArea := g.OutSize() * g.OutSize()
	inCube := g.InPlanes * g.InSize * g.InSize
	outCube := g.OutPlanes * outArea

	parallel.ForChunks(g.Batch, func(start, end int) {
		col := make([]float32, colRows*outArea)
		for b := start; b < end; b++ {
			im2col(col, input[b*inCube:(b+1)*inCube], g)
			gemm(output[b*outCube:(b+1)*outCube], filters, col, g.OutPlanes, colRows, outArea, false, false, 0)
		}
	}, cpu.parallel)
}

// im2col unrolls one example into a column matrix.
//
// Row r = (c*K + kh)*K + kw holds, for every output position (oh, ow), the
// input value at (c, oh+kh-pad, ow+kw-pad), or zero when that falls in the
// padding.
func im2col(col, input []float32, g tensor.ConvGeometry) {
	k := g.FilterSize
	in := g.InSize
	out := g.OutSize()
	outArea := out * out

	row := 0
	for c := 0; c < g.InPlanes; c++ {
		plane := input[c*in*in : (c+1)*in*in]
		for kh := 0; kh < k; kh++ {
			for kw := 0; kw < k; kw++ {
				dst := col[row*outArea : (row+1)*outArea]
				for oh := 0; oh < out; oh++ {
					h := oh + kh - g.Padding
					line := dst[oh*out : (oh+1)*out]
					if h < 0 || h >= in {
						clear(line)
						continue
					}
					for ow := 0; ow < out; ow++ {
						w := ow + kw - g.Padding
						if w >= 0 && w < in {
							line[ow] = plane[h*in+w]
						} else {
							line[ow] = 0
						}
					}
				}
				row++
			}
		}
	}
}

// col2im is the adjoint of im2col: it scatters and sums a column matrix back
// into one example's input layout. input is overwritten.
func col2im(input, col []float32, g tensor.ConvGeometry) {
	k := g.FilterSize
	in := g.InSize
	out := g.OutSize()
	outArea := out * out

	clear(input[:g.InPlanes*in*in])
	row := 0
	for c := 0; c < g.InPlanes; c++ {
		plane := input[c*in*in : (c+1)*in*in]
		for kh := 0; kh < k; kh++ {
			for kw := 0; kw < k; kw++ {
				src := col[row*outArea : (row+1)*outArea]
				for oh := 0; oh < out; oh++ {
					h := oh + kh - g.Padding
					if h < 0 || h >= in {
						continue
					}
					for ow := 0; ow < out; ow++ {
						w := ow + kw - g.Padding
						if w >= 0 && w < in {
							plane[h*in+w] += src[oh*out+ow]
						}
					}
				}
				row++
			}
		}
	}
}
